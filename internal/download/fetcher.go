package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/civica/civica/internal/task"
	"github.com/civica/civica/pkg/logger"
	"golang.org/x/time/rate"
)

var log = logger.Get("Download")

// tempSuffix marks in-flight writes. A crash mid-transfer leaves only
// an orphaned *.part file, never a short file at the final path.
const tempSuffix = ".part"

type (
	// Result is the terminal outcome of one task's transfer, including
	// everything the reporter and archive need.
	Result struct {
		Task     *task.DownloadTask
		Status   task.Status
		Bytes    int64
		Checksum string
		Attempts int
		Duration time.Duration
		Err      *TransferError
	}

	// Fetcher executes a single task to completion: paced, streaming
	// GET to a temp file, verification, atomic rename, with transient
	// failures retried per the configured policy.
	Fetcher struct {
		client     *http.Client
		limiter    *rate.Limiter
		policy     RetryPolicy
		userAgent  string
		outputRoot string
	}
)

// NewFetcher builds a Fetcher writing beneath outputRoot. The rate
// limiter is shared by every worker so the sustained request rate
// stays below requestsPerSecond regardless of pool size.
func NewFetcher(client *http.Client, outputRoot string, requestsPerSecond float64, policy RetryPolicy, userAgent string) *Fetcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &Fetcher{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		policy:     policy,
		userAgent:  userAgent,
		outputRoot: outputRoot,
	}
}

// Fetch runs the full attempt/retry sequence for one task. It always
// returns a terminal Result; errors never propagate past it so one
// failed resource cannot halt the rest of the run.
func (f *Fetcher) Fetch(ctx context.Context, t *task.DownloadTask) Result {
	started := time.Now()
	maxAttempts := f.policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	bo := f.policy.NewBackOff()
	var lastErr *TransferError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		bytes, checksum, err := f.attempt(ctx, t)
		if err == nil {
			log.Emit(logger.SUCCESS, "Downloaded %s (%d bytes)\n", t.TargetPath, bytes)
			return Result{Task: t, Status: task.Succeeded, Bytes: bytes, Checksum: checksum, Attempts: attempt, Duration: time.Since(started)}
		}

		lastErr = asTransferError(err)
		if lastErr.Kind != FailureTransient {
			return Result{Task: t, Status: task.Failed, Attempts: attempt, Duration: time.Since(started), Err: lastErr}
		}
		if attempt == maxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			break
		}

		log.Emit(logger.WARNING, "Attempt %d/%d for %s failed (%s), retrying in %s\n", attempt, maxAttempts, t.URL, lastErr, delay)
		select {
		case <-ctx.Done():
			return Result{Task: t, Status: task.Failed, Attempts: attempt, Duration: time.Since(started), Err: cancelledErr(ctx.Err())}
		case <-time.After(delay):
		}
	}

	log.Emit(logger.ERROR, "Exhausted %d attempts for %s: %s\n", maxAttempts, t.URL, lastErr)
	return Result{Task: t, Status: task.Failed, Attempts: maxAttempts, Duration: time.Since(started), Err: lastErr}
}

// attempt performs one paced transfer attempt, returning the byte
// count and sha256 checksum of the completed file.
func (f *Fetcher) attempt(ctx context.Context, t *task.DownloadTask) (int64, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, "", cancelledErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return 0, "", permanentErr(err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", cancelledErr(ctx.Err())
		}

		// Connection failures and timeouts may clear up on their own.
		return 0, "", transientErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if retryableStatus(resp.StatusCode) {
			return 0, "", transientErr(err)
		}
		return 0, "", permanentErr(err)
	}

	if contentType := resp.Header.Get("Content-Type"); !contentTypeMatches(contentType, t.Category) {
		return 0, "", permanentErr(fmt.Errorf("content type %q inconsistent with %s task", contentType, t.Category))
	}

	return f.writeAtomically(ctx, t, resp)
}

// writeAtomically streams the response body to <target>.part, verifies
// the byte count against the declared content length, then renames the
// temp file over the final path. Readers can therefore never observe a
// partially written file at the target path.
func (f *Fetcher) writeAtomically(ctx context.Context, t *task.DownloadTask, resp *http.Response) (int64, string, error) {
	target := filepath.Join(f.outputRoot, t.TargetPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, "", localErr(err)
	}

	tempPath := target + tempSuffix
	out, err := os.Create(tempPath)
	if err != nil {
		return 0, "", localErr(err)
	}

	hasher := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(out, hasher), resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		if ctx.Err() != nil {
			return 0, "", cancelledErr(ctx.Err())
		}

		// The remote host closing the stream mid-transfer is as
		// retryable as failing to connect in the first place.
		return 0, "", transientErr(copyErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return 0, "", localErr(closeErr)
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		os.Remove(tempPath)
		return 0, "", transientErr(fmt.Errorf("truncated transfer: wrote %d of %d declared bytes", written, resp.ContentLength))
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return 0, "", localErr(err)
	}

	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}

// contentTypeMatches is deliberately permissive - hosts frequently
// serve media as octet-streams - but an HTML error page standing in
// for a media or PDF resource is a permanent mismatch.
func contentTypeMatches(contentType string, category task.Category) bool {
	if contentType == "" {
		return true
	}

	accepted := map[task.Category][]string{
		task.Video:    {"video/", "application/octet-stream", "binary/"},
		task.Audio:    {"audio/", "application/octet-stream", "binary/"},
		task.Document: {"application/pdf", "text/plain", "application/octet-stream", "binary/"},
	}

	for _, prefix := range accepted[category] {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}

	return false
}
