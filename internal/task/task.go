package task

import (
	"fmt"
	"time"

	"github.com/civica/civica/internal/catalog"
)

type (
	// Category is the downloadable class a task belongs to; it decides
	// which subdirectory of the output root the file lands in.
	Category int

	// Status tracks a task through the engine. A task is owned by a
	// single run; only its terminal file-system effect survives it.
	Status int

	// DownloadTask is one (resource URL -> local file) unit of work,
	// derived from a catalog record by the classifier.
	DownloadTask struct {
		URL      string
		Kind     catalog.ResourceKind
		Category Category

		// TargetPath is the file path, relative to the output root,
		// this task writes to. It is a pure function of the meeting's
		// identity and the resource kind, which is what makes re-runs
		// resumable without a manifest.
		TargetPath string

		MeetingTitle string
		MeetingType  catalog.MeetingType
		MeetingDate  time.Time

		// MeetingKey groups every task derived from the same catalog
		// row, so the filter can bound meetings rather than tasks.
		MeetingKey string

		Status Status
		Size   int64
	}
)

const (
	Video Category = iota
	Audio
	Document
)

const (
	Pending Status = iota
	InProgress
	Succeeded
	Failed
	Skipped
)

// Subdirectory returns the fixed output subdirectory for the category.
func (c Category) Subdirectory() string {
	switch c {
	case Video:
		return "videos"
	case Audio:
		return "audio"
	default:
		return "documents"
	}
}

func (c Category) String() string {
	switch c {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "document"
	}
}

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case InProgress:
		return "IN_PROGRESS"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	case Skipped:
		return "SKIPPED"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", s)
	}
}

func (t *DownloadTask) String() string {
	return fmt.Sprintf("DownloadTask{%s %s -> %s}", t.Category, t.Kind, t.TargetPath)
}
