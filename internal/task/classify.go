package task

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/civica/civica/internal/catalog"
	"github.com/civica/civica/pkg/logger"
)

var log = logger.Get("Classify")

// downloadableKinds fixes both which resource kinds produce tasks and
// the order tasks for one meeting appear in. HTML agenda/minutes
// variants and detail pages are reference-only and never downloaded.
var downloadableKinds = []struct {
	kind     catalog.ResourceKind
	category Category
	suffix   string
}{
	{catalog.KindVideoLink, Video, ""},
	{catalog.KindMP4Download, Video, "_direct"},
	{catalog.KindAudioLink, Audio, ""},
	{catalog.KindAgendaPDF, Document, "_agenda"},
	{catalog.KindMinutesPDF, Document, "_minutes"},
	{catalog.KindTranscriptURL, Document, "_transcript"},
}

// FromRecord derives the download tasks for a single catalog record:
// one task per non-empty, well-formed, downloadable resource link. A
// malformed or missing URL is not an error; the kind simply produces
// no task. When the direct MP4 link duplicates the video link exactly,
// only the video link task is produced.
func FromRecord(record catalog.MeetingRecord) []*DownloadTask {
	tasks := make([]*DownloadTask, 0, len(downloadableKinds))

	for _, entry := range downloadableKinds {
		rawURL, ok := record.Resource(entry.kind)
		if !ok {
			continue
		}
		if !validURL(rawURL) {
			log.Emit(logger.VERBOSE, "Ignoring malformed %s URL %q for %s\n", entry.kind, rawURL, record.Title)
			continue
		}

		if entry.kind == catalog.KindMP4Download {
			if videoURL, ok := record.Resource(catalog.KindVideoLink); ok && videoURL == rawURL {
				continue
			}
		}

		tasks = append(tasks, &DownloadTask{
			URL:          rawURL,
			Kind:         entry.kind,
			Category:     entry.category,
			TargetPath:   path.Join(entry.category.Subdirectory(), targetFilename(record, entry.kind, entry.category, entry.suffix, rawURL)),
			MeetingTitle: record.Title,
			MeetingType:  record.Type,
			MeetingDate:  record.Date,
			MeetingKey:   record.RawDate + "|" + record.Title,
			Status:       Pending,
		})
	}

	return tasks
}

// FromRecords runs the classifier over the whole catalog, preserving
// catalog order.
func FromRecords(records []catalog.MeetingRecord) []*DownloadTask {
	tasks := make([]*DownloadTask, 0, len(records))
	for _, record := range records {
		tasks = append(tasks, FromRecord(record)...)
	}

	return tasks
}

func validURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// targetFilename builds the deterministic filename for a (record,
// kind) pair: "<date>_<title><kind suffix><ext>". The kind suffix
// keeps distinct resources of one meeting from colliding.
func targetFilename(record catalog.MeetingRecord, kind catalog.ResourceKind, category Category, suffix string, rawURL string) string {
	datePart := record.RawDate
	if !record.Date.IsZero() {
		datePart = record.Date.Format("2006-01-02")
	}

	name := sanitizeFilename(datePart) + "_" + sanitizeFilename(record.Title) + suffix
	return name + extensionFor(rawURL, kind, category)
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRuns      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips characters that are unsafe on common file
// systems and collapses whitespace, capping the result so the final
// path stays well under OS filename limits.
func sanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > 120 {
		name = name[:120]
	}

	return name
}

// extensionFor prefers the extension embedded in the URL path, falling
// back to a category default when the URL does not carry a usable one.
func extensionFor(rawURL string, kind catalog.ResourceKind, category Category) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(parsed.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}

	if kind == catalog.KindTranscriptURL {
		return ".txt"
	}
	switch category {
	case Video:
		return ".mp4"
	case Audio:
		return ".mp3"
	default:
		return ".pdf"
	}
}
