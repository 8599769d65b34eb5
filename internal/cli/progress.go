package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/codelens/internal/indexer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	out     io.Writer
	quiet   bool
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		out:   out,
		quiet: quiet,
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, "Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Processing %s source files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting symbols"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

// OnFileProcessed is called from extraction workers; the bar serializes Add.
func (c *CLIProgressReporter) OnFileProcessed(fileName string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	_ = c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnEnrichmentStart(tables int) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		_ = c.fileBar.Finish()
		c.fileBar = nil
	}
	fmt.Fprintf(c.out, "Resolving calls across %s modules...\n", formatNumber(tables))
}

func (c *CLIProgressReporter) OnEnrichmentComplete(edges int, duration time.Duration) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "✓ Call graph built: %s edges (took %.1fs)\n", formatNumber(edges), duration.Seconds())
}

func (c *CLIProgressReporter) OnComplete(batch *indexer.Batch) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out)
	writeBatchSummary(c.out, batch)
}

// writeBatchSummary prints the outcome of a pipeline run.
func writeBatchSummary(out io.Writer, b *indexer.Batch) {
	fmt.Fprintf(out, "✓ Indexing complete: %s files in %.1fs\n", formatNumber(len(b.Files)), b.Duration.Seconds())
	fmt.Fprintf(out, "  Extracted: %s\n", formatNumber(len(b.Tables)))
	fmt.Fprintf(out, "  Stored:    %s\n", formatNumber(b.Stored))
	fmt.Fprintf(out, "  Unchanged: %s\n", formatNumber(b.Skipped))
	if len(b.Pruned) > 0 {
		fmt.Fprintf(out, "  Pruned:    %s\n", formatNumber(len(b.Pruned)))
	}
	if b.Result != nil && len(b.Result.Warnings) > 0 {
		fmt.Fprintf(out, "  Warnings:  %s\n", formatNumber(len(b.Result.Warnings)))
	}
	if len(b.Failures) > 0 {
		fmt.Fprintf(out, "  Failed:    %s\n", formatNumber(len(b.Failures)))
		for _, f := range b.Failures {
			fmt.Fprintf(out, "    ✗ %v\n", f)
		}
	}
}

// formatNumber formats n with thousands separators.
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	sign := ""
	if n < 0 {
		sign, str = "-", str[1:]
	}
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return sign + result
}
