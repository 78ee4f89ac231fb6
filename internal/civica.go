package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/civica/civica/internal/archive"
	"github.com/civica/civica/internal/catalog"
	"github.com/civica/civica/internal/download"
	"github.com/civica/civica/internal/report"
	"github.com/civica/civica/internal/resume"
	"github.com/civica/civica/internal/task"
	"github.com/civica/civica/pkg/logger"
	"github.com/dustin/go-humanize"
)

var log = logger.Get("Core")

// Civica is the top-level object for one engine invocation: it wires
// the catalog reader, classifier, filter, resume guard, fetch worker
// pool and reporter together and runs them once, top-down.
type Civica struct {
	config CivicaConfig
}

func New(config CivicaConfig) *Civica {
	return &Civica{config: config}
}

// Run performs a full download pass and returns the run's summary.
// Systemic problems (unreadable catalog, uncreatable output root)
// return an error before any task is dispatched; per-task failures
// are captured in the summary instead.
//
// Cancelling the context stops dispatch of new tasks promptly and
// aborts in-flight transfers; the engine still returns a complete
// summary for everything that reached a terminal state.
func (civica *Civica) Run(ctx context.Context) (*report.RunSummary, error) {
	config := civica.config

	records, err := catalog.LoadFile(config.CatalogPath)
	if err != nil {
		return nil, err
	}

	filter, err := config.filter()
	if err != nil {
		return nil, err
	}

	tasks := task.FromRecords(records)
	filtered := filter.Apply(tasks)
	log.Emit(logger.INFO, "Classified %d tasks, %d selected after filtering\n", len(tasks), len(filtered))

	if len(filtered) == 0 {
		log.Emit(logger.WARNING, "No tasks match the configured filters\n")
		summary := report.Build(nil, nil)
		summary.Filtered = len(tasks)
		return summary, nil
	}

	if err := config.ensureOutputDirs(); err != nil {
		return nil, err
	}

	remaining, skipped := resume.Guard(config.OutputDir, filtered)

	var store *archive.Store
	if config.Archive.Enabled {
		if store, err = archive.Open(config.archivePath()); err != nil {
			// The archive is an optional accelerator; a broken one
			// must not stand in the way of the downloads themselves.
			log.Emit(logger.WARNING, "Continuing without download archive: %s\n", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	fetcher := download.NewFetcher(
		&http.Client{Timeout: time.Duration(config.HTTP.TimeoutSeconds) * time.Second},
		config.OutputDir,
		config.Concurrent.RequestsPerSecond,
		config.retryPolicy(),
		config.HTTP.UserAgent,
	)

	pool := download.NewPool(fetcher, config.Concurrent.Workers)
	results := pool.Execute(ctx, remaining)

	if store != nil {
		for _, result := range results {
			if result.Status != task.Succeeded {
				continue
			}
			if err := store.Record(result); err != nil {
				log.Emit(logger.WARNING, "%s\n", err)
			}
		}
	}

	summary := report.Build(skipped, results)
	summary.Filtered = len(tasks) - len(filtered)

	return summary, nil
}

// ShowArchive prints archive statistics and the most recent downloads
// without performing any network activity.
func (civica *Civica) ShowArchive(w io.Writer) error {
	store, err := archive.Open(civica.config.archivePath())
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "=== DOWNLOAD ARCHIVE ===\n")
	fmt.Fprintf(w, "Archive: %s\n", civica.config.archivePath())
	fmt.Fprintf(w, "Tracked files: %d\n", stats.Files)
	fmt.Fprintf(w, "Total size: %s\n", humanize.Bytes(uint64(stats.TotalBytes)))

	if len(stats.ByKind) > 0 {
		fmt.Fprintf(w, "\nBy resource kind:\n")
		for kind, count := range stats.ByKind {
			fmt.Fprintf(w, "  %-15s %d\n", kind+":", count)
		}
	}

	recent, err := store.Recent(10)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Fprintf(w, "\nRecent downloads:\n")
		for _, entry := range recent {
			fmt.Fprintf(w, "  %s  %s (%s)\n",
				entry.DownloadedAt.Format("2006-01-02"), entry.Path, humanize.Bytes(uint64(entry.SizeBytes)))
		}
	}

	return nil
}
