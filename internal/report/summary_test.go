package report_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/civica/civica/internal/download"
	"github.com/civica/civica/internal/report"
	"github.com/civica/civica/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() ([]*task.DownloadTask, []download.Result) {
	video := &task.DownloadTask{URL: "https://example.com/v.mp4", Category: task.Video, TargetPath: "videos/v.mp4", Status: task.Succeeded}
	agenda := &task.DownloadTask{URL: "https://example.com/a.pdf", Category: task.Document, TargetPath: "documents/a.pdf", Status: task.Succeeded}
	broken := &task.DownloadTask{URL: "https://example.com/gone.pdf", Category: task.Document, TargetPath: "documents/gone.pdf", Status: task.Failed}
	skipped := &task.DownloadTask{URL: "https://example.com/old.mp3", Category: task.Audio, TargetPath: "audio/old.mp3", Status: task.Skipped, Size: 900}

	results := []download.Result{
		{Task: video, Status: task.Succeeded, Bytes: 2048, Attempts: 1},
		{Task: agenda, Status: task.Succeeded, Bytes: 512, Attempts: 2},
		{Task: broken, Status: task.Failed, Attempts: 1, Err: &download.TransferError{Kind: download.FailurePermanent, Err: errors.New("unexpected status 404 Not Found")}},
	}

	return []*task.DownloadTask{skipped}, results
}

func TestBuild_AggregatesTerminalStates(t *testing.T) {
	t.Parallel()

	skipped, results := sampleResults()
	summary := report.Build(skipped, results)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, int64(2560), summary.BytesTransferred, "skipped tasks must not count towards transferred bytes")

	assert.Equal(t, 1, summary.SucceededByCategory[task.Video])
	assert.Equal(t, 1, summary.SucceededByCategory[task.Document])
	assert.Equal(t, 1, summary.FailedByCategory[task.Document])

	require.Len(t, summary.Failures, 1)
	failure := summary.Failures[0]
	assert.Equal(t, "https://example.com/gone.pdf", failure.URL)
	assert.Equal(t, download.FailurePermanent, failure.Kind)
	assert.Equal(t, "unexpected status 404 Not Found", failure.Cause)
	assert.Equal(t, 1, failure.Attempts)
}

func TestHasFailures(t *testing.T) {
	t.Parallel()

	skipped, results := sampleResults()
	assert.True(t, report.Build(skipped, results).HasFailures())
	assert.False(t, report.Build(skipped, results[:2]).HasFailures())
	assert.False(t, report.Build(nil, nil).HasFailures(), "an empty run is a success")
}

func TestRender_EnumeratesFailures(t *testing.T) {
	t.Parallel()

	skipped, results := sampleResults()
	summary := report.Build(skipped, results)

	var buf bytes.Buffer
	summary.Render(&buf)
	rendered := buf.String()

	assert.Contains(t, rendered, "=== DOWNLOAD SUMMARY ===")
	assert.Contains(t, rendered, "Succeeded: 2")
	assert.Contains(t, rendered, "Failed:    1")
	assert.Contains(t, rendered, "Skipped:   1")
	assert.Contains(t, rendered, "https://example.com/gone.pdf")
	assert.Contains(t, rendered, "unexpected status 404 Not Found")
	assert.Contains(t, rendered, "[document/permanent]")
	assert.Contains(t, rendered, "Failed by category:")
	assert.Contains(t, rendered, "document: 1")
}

func TestRender_ReportsFilteredCount(t *testing.T) {
	t.Parallel()

	summary := report.Build(nil, nil)
	summary.Filtered = 7

	var buf bytes.Buffer
	summary.Render(&buf)

	assert.Contains(t, buf.String(), "Filtered:  7")
}

func TestRender_EmptyRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report.Build(nil, nil).Render(&buf)

	assert.Contains(t, buf.String(), "Succeeded: 0")
	assert.NotContains(t, buf.String(), "Failed downloads:")
}
