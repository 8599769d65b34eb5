package indexer

import "time"

// ProgressReporter provides callbacks for reporting pipeline progress.
// Implementations can display progress bars, log messages, or remain silent.
// OnFileProcessed is called from worker goroutines.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files int)

	// OnFileProcessingStart is called before extraction starts.
	OnFileProcessingStart(totalFiles int)

	// OnFileProcessed is called after each file is extracted and stored.
	OnFileProcessed(fileName string)

	// Enrichment runs once all files are processed.
	OnEnrichmentStart(tables int)
	OnEnrichmentComplete(edges int, duration time.Duration)

	// OnComplete is called when a run completes successfully.
	OnComplete(batch *Batch)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                                      {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int)                          {}
func (n *NoOpProgressReporter) OnFileProcessingStart(totalFiles int)                   {}
func (n *NoOpProgressReporter) OnFileProcessed(fileName string)                        {}
func (n *NoOpProgressReporter) OnEnrichmentStart(tables int)                           {}
func (n *NoOpProgressReporter) OnEnrichmentComplete(edges int, duration time.Duration) {}
func (n *NoOpProgressReporter) OnComplete(batch *Batch)                                {}
