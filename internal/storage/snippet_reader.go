package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
)

var snippetColumns = []string{
	"id", "file_path", "dir_path", "name", "type", "description", "code",
	"line_start", "line_end", "char_count", "tags", "updated_at",
}

// NeedsUpdate reports whether file must be extracted again: it exists and
// either has no parse record or was modified after the recorded parse.
func (s *SnippetStore) NeedsUpdate(ctx context.Context, file string) (bool, error) {
	info, err := os.Stat(file)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("needs-update", file, err)
	}

	var parsed float64
	err = sq.Select("last_parsed_time").
		From("code_files").
		Where(sq.Eq{"file_path": file}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&parsed)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, storageErr("needs-update", file, err)
	}
	return epochSeconds(info.ModTime()) > parsed, nil
}

// LastParsed returns the recorded parse time of file.
func (s *SnippetStore) LastParsed(ctx context.Context, file string) (time.Time, bool, error) {
	var parsed float64
	err := sq.Select("last_parsed_time").
		From("code_files").
		Where(sq.Eq{"file_path": file}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&parsed)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, storageErr("last-parsed", file, err)
	}
	sec := int64(parsed)
	return time.Unix(sec, int64((parsed-float64(sec))*1e9)), true, nil
}

var callSuffix = regexp.MustCompile(`\(.*$`)

// NormalizeName strips a leading "def " or "class " and any call or
// signature suffix from a lookup name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"def ", "async def ", "class "} {
		name = strings.TrimPrefix(name, prefix)
	}
	name = callSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(strings.TrimSuffix(name, ":"))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Lookup finds snippets of file by name.
//
// In exact mode a snippet matches when its name equals the normalized name
// or ends with "." followed by it, so "save" finds "Repo.save".
// Otherwise any name containing the normalized name matches. Results are
// ordered exact, prefix, suffix, then substring, shorter names first.
func (s *SnippetStore) Lookup(ctx context.Context, file, name string, exact bool) ([]Snippet, error) {
	n := NormalizeName(name)
	if n == "" {
		return nil, nil
	}
	esc := likeEscaper.Replace(n)

	query := sq.Select(snippetColumns...).
		From("code_snippets").
		Where(sq.Eq{"file_path": file})

	if exact {
		suffix := "." + n
		query = query.
			Where(sq.Or{
				sq.Eq{"name": n},
				sq.Expr("substr(name, -?) = ?", utf8.RuneCountInString(suffix), suffix),
			}).
			OrderByClause("CASE WHEN name = ? THEN 0 ELSE 1 END", n)
	} else {
		query = query.
			Where(`name LIKE ? ESCAPE '\'`, "%"+esc+"%").
			OrderByClause(
				`CASE WHEN name = ? THEN 0 WHEN name LIKE ? ESCAPE '\' THEN 1 WHEN name LIKE ? ESCAPE '\' THEN 2 ELSE 3 END`,
				n, esc+"%", "%"+esc,
			)
	}
	query = query.OrderBy("length(name)", "name", "line_start")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, storageErr("lookup", file, err)
	}
	defer rows.Close()

	out, err := scanSnippets(rows)
	if err != nil {
		return nil, storageErr("lookup", file, err)
	}
	return out, nil
}

// SnippetsByFile returns all snippets of file in line order.
func (s *SnippetStore) SnippetsByFile(ctx context.Context, file string) ([]Snippet, error) {
	rows, err := sq.Select(snippetColumns...).
		From("code_snippets").
		Where(sq.Eq{"file_path": file}).
		OrderBy("line_start", "name").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, storageErr("read", file, err)
	}
	defer rows.Close()

	out, err := scanSnippets(rows)
	if err != nil {
		return nil, storageErr("read", file, err)
	}
	return out, nil
}

// TrackedFiles returns every file with a parse record, sorted.
func (s *SnippetStore) TrackedFiles(ctx context.Context) ([]string, error) {
	rows, err := sq.Select("file_path").
		From("code_files").
		OrderBy("file_path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, storageErr("tracked-files", "", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, storageErr("tracked-files", "", err)
		}
		files = append(files, f)
	}
	return files, storageErr("tracked-files", "", rows.Err())
}

// Stats counts snippets, files and snippets per type.
func (s *SnippetStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TypeDistribution: make(map[string]int)}

	if err := sq.Select("COUNT(*)").From("code_snippets").
		RunWith(s.db).QueryRowContext(ctx).Scan(&stats.SnippetCount); err != nil {
		return nil, storageErr("stats", "", err)
	}
	if err := sq.Select("COUNT(*)").From("code_files").
		RunWith(s.db).QueryRowContext(ctx).Scan(&stats.FileCount); err != nil {
		return nil, storageErr("stats", "", err)
	}

	rows, err := sq.Select("type", "COUNT(*)").
		From("code_snippets").
		GroupBy("type").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, storageErr("stats", "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, storageErr("stats", "", err)
		}
		stats.TypeDistribution[typ] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("stats", "", err)
	}
	return stats, nil
}

func scanSnippets(rows *sql.Rows) ([]Snippet, error) {
	var out []Snippet
	for rows.Next() {
		var (
			sn                    Snippet
			dir, desc, tags       sql.NullString
			start, end, charCount sql.NullInt64
			typ                   string
			updated               sql.NullTime
		)
		if err := rows.Scan(
			&sn.ID, &sn.FilePath, &dir, &sn.Name, &typ, &desc, &sn.Code,
			&start, &end, &charCount, &tags, &updated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		sn.DirPath = dir.String
		sn.Type = SnippetType(typ)
		sn.Description = desc.String
		sn.LineStart = int(start.Int64)
		sn.LineEnd = int(end.Int64)
		sn.CharCount = int(charCount.Int64)
		sn.Tags = splitTags(tags.String)
		sn.UpdatedAt = updated.Time
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snippets: %w", err)
	}
	return out, nil
}
