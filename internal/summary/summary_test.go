package summary

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mvp-joe/codelens/internal/budget"
	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	"github.com/mvp-joe/codelens/internal/indexer/parsers"
	"github.com/mvp-joe/codelens/internal/ranking"
	"github.com/mvp-joe/codelens/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for summary:
// - Full reports every file, import group, class, function and edge
// - A budget large enough for everything reproduces Full exactly
// - Non-truncated sections stay within their quotas
// - Focused symbols are included even when they do not fit
// - Tiny budgets fall back to truncating the top item of each section
// - Output is deterministic and invalid options are rejected

func enrichFixtures(t *testing.T) *graph.Result {
	t.Helper()
	var tables []*extraction.SymbolTable
	for _, name := range []string{"utils.py", "simple.py"} {
		path := "../../testdata/code/python/" + name
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		table, err := parsers.NewPythonExtractor().Extract(context.Background(), source.NewUnit(path, time.Time{}, content))
		require.NoError(t, err)
		tables = append(tables, table)
	}
	res, err := graph.NewEnricher(nil).Enrich(context.Background(), tables)
	require.NoError(t, err)
	return res
}

func options(total float64, focus ...string) Options {
	return Options{
		Budget:    total,
		Focus:     focus,
		Weights:   ranking.DefaultWeights(),
		Estimator: budget.DefaultEstimator(),
	}
}

func TestFull(t *testing.T) {
	t.Parallel()

	r := Full(enrichFixtures(t))
	require.Len(t, r.Files, 2)

	simple := r.Files[0]
	assert.Equal(t, "simple", simple.Module)
	assert.Equal(t, "User management helpers.", simple.Doc)
	assert.Len(t, simple.Imports, 4)
	assert.Len(t, simple.Classes, 2)
	assert.Len(t, simple.Functions, 4)

	repo := simple.Classes[1]
	assert.Equal(t, "UserRepository", repo.Name)
	assert.Equal(t, []string{"Base", "models.Model"}, repo.Bases)
	require.Len(t, repo.Methods, 4)
	assert.Equal(t, "UserRepository.add", repo.Methods[1].Name)
	assert.Equal(t, "None", repo.Methods[1].Returns)

	fetch := simple.Functions[1]
	assert.True(t, fetch.Async)
	require.Len(t, fetch.Inner, 1)
	assert.Equal(t, "parse", fetch.Inner[0].Name)

	assert.Equal(t, "utils", r.Files[1].Module)
	assert.Len(t, r.CallGraph, 4)
}

func TestAssemble_LargeBudgetMatchesFull(t *testing.T) {
	t.Parallel()

	res := enrichFixtures(t)
	s, err := Assemble(res, options(100000))
	require.NoError(t, err)

	assert.Equal(t, Full(res), s.Report)
	require.Len(t, s.Sections, 4)
	for i, name := range []string{SectionImports, SectionClasses, SectionFunctions, SectionCallGraph} {
		assert.Equal(t, name, s.Sections[i].Name)
		assert.Equal(t, s.Sections[i].Total, s.Sections[i].Items)
		assert.False(t, s.Sections[i].Truncated)
	}
	assert.Contains(t, s.Sections[0].Text, "simple.py: import sys as system")
	assert.Contains(t, s.Sections[1].Text, "class UserRepository(Base, models.Model):")
}

func TestAssemble_RespectsQuotas(t *testing.T) {
	t.Parallel()

	res := enrichFixtures(t)
	for _, total := range []float64{40, 80, 120, 200} {
		s, err := Assemble(res, options(total))
		require.NoError(t, err)

		var quotas float64
		for _, sec := range s.Sections {
			quotas += sec.Quota
			if !sec.Truncated {
				assert.LessOrEqual(t, sec.Used, sec.Quota+1e-9, "budget %v section %s", total, sec.Name)
			}
		}
		assert.LessOrEqual(t, quotas, total+1e-6)
	}
}

func TestAssemble_FocusForcesInclusion(t *testing.T) {
	t.Parallel()

	res := enrichFixtures(t)
	s, err := Assemble(res, options(10, "create_user"))
	require.NoError(t, err)

	var names []string
	for _, f := range s.Report.Files {
		for _, fn := range f.Functions {
			names = append(names, fn.Name)
		}
	}
	assert.Contains(t, names, "create_user")

	for _, sc := range s.Scores {
		if sc.Name == "create_user" {
			assert.True(t, sc.Focus)
		}
	}
}

func TestAssemble_TinyBudgetTruncates(t *testing.T) {
	t.Parallel()

	s, err := Assemble(enrichFixtures(t), options(1))
	require.NoError(t, err)

	classes := s.Sections[1]
	assert.Equal(t, SectionClasses, classes.Name)
	assert.True(t, classes.Truncated)
	assert.Equal(t, 0, classes.Items)
	assert.True(t,
		strings.HasSuffix(classes.Text, budget.CutMarker) || classes.Text == budget.OmittedMarker,
		classes.Text)
	assert.Empty(t, s.Report.Files)
}

func TestAssemble_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := Assemble(enrichFixtures(t), options(150, "main"))
	require.NoError(t, err)
	second, err := Assemble(enrichFixtures(t), options(150, "main"))
	require.NoError(t, err)

	assert.Equal(t, first.Sections, second.Sections)
	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.SuggestedFocus, second.SuggestedFocus)
}

func TestAssemble_Invalid(t *testing.T) {
	t.Parallel()

	res := enrichFixtures(t)

	_, err := Assemble(res, options(-5))
	assert.ErrorIs(t, err, budget.ErrInvalidBudget)

	opts := options(100)
	opts.Weights.Complexity = -1
	_, err = Assemble(res, opts)
	assert.ErrorIs(t, err, ranking.ErrInvalidWeight)
}

func TestAssemble_Highlights(t *testing.T) {
	t.Parallel()

	s, err := Assemble(enrichFixtures(t), options(1000))
	require.NoError(t, err)

	assert.Equal(t, []string{"simple:main"}, s.Central[:1])
	assert.Empty(t, s.EntryPoints, "main calls only two functions")
	require.NotEmpty(t, s.SuggestedFocus)
	assert.Equal(t, "User", s.SuggestedFocus[0])
	assert.LessOrEqual(t, len(s.SuggestedFocus), 5)
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	res := enrichFixtures(t)
	s, err := Assemble(res, options(1000))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "## classes (")
	assert.Contains(t, out, "## call_graph (")
	assert.Contains(t, out, "simple.main -> simple.helper")
	assert.Contains(t, out, "## suggested focus")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, Full(res)))
	out = buf.String()
	assert.Contains(t, out, "# ../../testdata/code/python/utils.py (utils)")
	assert.Contains(t, out, "    @staticmethod\n    def find_by_email(users, email: str) -> None | unknown")
	assert.Contains(t, out, "async def fetch(*args, timeout: float, **kwargs) -> unknown")
}
