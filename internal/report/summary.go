package report

import (
	"fmt"
	"io"

	"github.com/civica/civica/internal/download"
	"github.com/civica/civica/internal/task"
	"github.com/dustin/go-humanize"
)

type (
	// Failure carries enough context for a user to retry the resource
	// by hand: the URL, what it was, why it failed and how hard the
	// engine tried.
	Failure struct {
		URL      string
		Target   string
		Category task.Category
		Kind     download.FailureKind
		Cause    string
		Attempts int
	}

	// RunSummary aggregates the terminal status of every task a run
	// touched. It is created fresh per invocation and discarded after
	// rendering; nothing here is global state.
	RunSummary struct {
		Succeeded int
		Failed    int
		Skipped   int

		// Filtered counts classified tasks the configured filters
		// excluded before the run; informational, like Skipped.
		Filtered int

		SucceededByCategory map[task.Category]int
		FailedByCategory    map[task.Category]int

		BytesTransferred int64
		Failures         []Failure
	}
)

// Build folds the resume-guard skips and the pool's results into a
// summary. Skipped tasks are informational; they never count towards
// success or failure.
func Build(skipped []*task.DownloadTask, results []download.Result) *RunSummary {
	summary := &RunSummary{
		Skipped:             len(skipped),
		SucceededByCategory: make(map[task.Category]int),
		FailedByCategory:    make(map[task.Category]int),
		Failures:            make([]Failure, 0),
	}

	for _, result := range results {
		switch result.Status {
		case task.Succeeded:
			summary.Succeeded++
			summary.SucceededByCategory[result.Task.Category]++
			summary.BytesTransferred += result.Bytes
		case task.Failed:
			summary.Failed++
			summary.FailedByCategory[result.Task.Category]++

			cause := "unknown"
			kind := download.FailureTransient
			if result.Err != nil {
				cause = result.Err.Err.Error()
				kind = result.Err.Kind
			}
			summary.Failures = append(summary.Failures, Failure{
				URL:      result.Task.URL,
				Target:   result.Task.TargetPath,
				Category: result.Task.Category,
				Kind:     kind,
				Cause:    cause,
				Attempts: result.Attempts,
			})
		}
	}

	return summary
}

// HasFailures reports whether the run should signal partial failure
// to the caller.
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Render writes the human-readable summary. Failures are enumerated
// individually so a follow-up run can target exactly what is missing.
func (s *RunSummary) Render(w io.Writer) {
	fmt.Fprintf(w, "\n=== DOWNLOAD SUMMARY ===\n")
	fmt.Fprintf(w, "Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:    %d\n", s.Failed)
	fmt.Fprintf(w, "Skipped:   %d (already present from previous runs)\n", s.Skipped)
	fmt.Fprintf(w, "Filtered:  %d (excluded by the configured filters)\n", s.Filtered)
	fmt.Fprintf(w, "Transferred: %s\n", humanize.Bytes(uint64(s.BytesTransferred)))

	if s.Succeeded > 0 {
		fmt.Fprintf(w, "\nCompleted by category:\n")
		for _, category := range []task.Category{task.Video, task.Audio, task.Document} {
			if count := s.SucceededByCategory[category]; count > 0 {
				fmt.Fprintf(w, "  %-9s %d\n", category.String()+":", count)
			}
		}
	}

	if s.Failed > 0 {
		fmt.Fprintf(w, "\nFailed by category:\n")
		for _, category := range []task.Category{task.Video, task.Audio, task.Document} {
			if count := s.FailedByCategory[category]; count > 0 {
				fmt.Fprintf(w, "  %-9s %d\n", category.String()+":", count)
			}
		}
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\nFailed downloads:\n")
		for _, failure := range s.Failures {
			fmt.Fprintf(w, "  - [%s/%s] %s\n    cause: %s (after %d attempt(s))\n",
				failure.Category, failure.Kind, failure.URL, failure.Cause, failure.Attempts)
		}
	}
}
