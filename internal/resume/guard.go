// Package resume elides tasks whose output already exists from a
// prior run. The check is purely file-presence based: the target path
// is deterministic, so an existing, non-empty file at that path IS the
// completion marker. The download archive can pre-warm statistics but
// never overrides this check.
package resume

import (
	"os"
	"path/filepath"

	"github.com/civica/civica/internal/task"
	"github.com/civica/civica/pkg/logger"
)

var log = logger.Get("Resume")

// Guard partitions tasks into those still requiring a download and
// those already satisfied by a prior run. A zero-byte file at the
// target path is treated as the residue of a failed attempt and the
// task is kept for re-download.
func Guard(outputRoot string, tasks []*task.DownloadTask) (remaining, skipped []*task.DownloadTask) {
	remaining = make([]*task.DownloadTask, 0, len(tasks))
	skipped = make([]*task.DownloadTask, 0)

	for _, t := range tasks {
		info, err := os.Stat(filepath.Join(outputRoot, t.TargetPath))
		if err == nil && info.Size() > 0 {
			t.Status = task.Skipped
			t.Size = info.Size()
			skipped = append(skipped, t)

			log.Emit(logger.VERBOSE, "Skipping %s - already downloaded (%d bytes)\n", t.TargetPath, info.Size())
			continue
		}

		remaining = append(remaining, t)
	}

	if len(skipped) > 0 {
		log.Emit(logger.INFO, "Resume: %d of %d tasks already complete from a previous run\n", len(skipped), len(tasks))
	}

	return remaining, skipped
}
