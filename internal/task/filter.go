package task

import (
	"time"

	"github.com/civica/civica/internal/catalog"
)

// Filter selects the subset of classified tasks a run should actually
// process. Filtering is deterministic and order-preserving; an empty
// result is valid.
type Filter struct {
	// Types restricts tasks to meetings of these types. Empty means
	// every type is allowed.
	Types []catalog.MeetingType

	// From/Until bound the meeting date (inclusive). Zero values leave
	// the corresponding side unbounded. Records whose date could not
	// be parsed are excluded whenever a bound is set, since they
	// cannot be proven to fall within it.
	From  time.Time
	Until time.Time

	// Limit bounds the number of MEETINGS admitted (not tasks), in
	// catalog order, applied after type and date filtering. Zero
	// means unlimited. All tasks of an admitted meeting stay together.
	Limit int

	// Categories enables/disables whole download categories. A nil
	// map enables everything; a missing key defaults to enabled.
	Categories map[Category]bool
}

// Apply runs the filter over tasks in their original order.
func (f Filter) Apply(tasks []*DownloadTask) []*DownloadTask {
	admitted := make(map[string]bool)
	admittedCount := 0

	result := make([]*DownloadTask, 0, len(tasks))
	for _, t := range tasks {
		if !f.typeAllowed(t.MeetingType) || !f.dateAllowed(t.MeetingDate) {
			continue
		}

		// Meeting admission happens before the category flags so that
		// the limit counts meetings, not surviving tasks.
		if !admitted[t.MeetingKey] {
			if f.Limit > 0 && admittedCount >= f.Limit {
				continue
			}
			admitted[t.MeetingKey] = true
			admittedCount++
		}

		if !f.categoryEnabled(t.Category) {
			continue
		}

		result = append(result, t)
	}

	return result
}

func (f Filter) typeAllowed(meetingType catalog.MeetingType) bool {
	if len(f.Types) == 0 {
		return true
	}

	for _, allowed := range f.Types {
		if allowed == meetingType {
			return true
		}
	}

	return false
}

func (f Filter) dateAllowed(date time.Time) bool {
	if f.From.IsZero() && f.Until.IsZero() {
		return true
	}
	if date.IsZero() {
		return false
	}

	if !f.From.IsZero() && date.Before(f.From) {
		return false
	}
	if !f.Until.IsZero() && date.After(f.Until) {
		return false
	}

	return true
}

func (f Filter) categoryEnabled(category Category) bool {
	if f.Categories == nil {
		return true
	}

	enabled, ok := f.Categories[category]
	return !ok || enabled
}
