package catalog

import (
	"fmt"
	"strings"
	"time"
)

type (
	// MeetingType is the broad category a civic meeting belongs to,
	// derived from the free-text meeting label the upstream scraper
	// records in the catalog.
	MeetingType int

	// ResourceKind identifies one of the remote-resource columns a
	// catalog row can carry. Not every kind is downloadable; HTML
	// variants and detail pages are reference-only.
	ResourceKind string

	// MeetingRecord is a single row of the meeting catalog. Records are
	// created by the catalog reader and must not be mutated afterwards;
	// every downstream stage derives its own state from them.
	MeetingRecord struct {
		// Date is the parsed calendar date of the meeting. It is the
		// zero time when the catalog carried a date the reader could
		// not parse - such records are still valid, they simply cannot
		// participate in date-bound filtering.
		Date time.Time

		// RawDate preserves the catalog's original date text, used for
		// deterministic file naming even when parsing failed.
		RawDate string

		// Time is the optional clock time text (e.g. "6:00 PM").
		Time string

		Title string
		Type  MeetingType

		// Resources maps each resource kind to its URL. Absent or
		// blank columns are simply missing from the map.
		Resources map[ResourceKind]string
	}
)

const (
	RegularCouncil MeetingType = iota
	WorkSession
	SpecialCouncil
	PlanningZoning
	UrbanRenewal
	Other
)

const (
	KindAgendaPDF     ResourceKind = "agenda_pdf"
	KindAgendaHTML    ResourceKind = "agenda_html"
	KindMinutesPDF    ResourceKind = "minutes_pdf"
	KindMinutesHTML   ResourceKind = "minutes_html"
	KindAudioLink     ResourceKind = "audio_link"
	KindVideoLink     ResourceKind = "video_link"
	KindMP4Download   ResourceKind = "mp4_download"
	KindDetailPage    ResourceKind = "detail_page"
	KindTranscriptURL ResourceKind = "transcript_url"
)

// ResourceKinds lists every kind the catalog schema knows about, in
// the column order the upstream scraper emits them.
func ResourceKinds() []ResourceKind {
	return []ResourceKind{
		KindAgendaPDF, KindAgendaHTML,
		KindMinutesPDF, KindMinutesHTML,
		KindAudioLink, KindVideoLink, KindMP4Download,
		KindDetailPage, KindTranscriptURL,
	}
}

// Resource returns the URL recorded for the given kind, if any.
func (record *MeetingRecord) Resource(kind ResourceKind) (string, bool) {
	url, ok := record.Resources[kind]
	return url, ok
}

func (record *MeetingRecord) String() string {
	return fmt.Sprintf("MeetingRecord{date=%s title=%q type=%s}", record.RawDate, record.Title, record.Type)
}

// ParseMeetingType maps the scraper's free-text meeting label on to
// a MeetingType. Labels the catalog does not recognise (e.g. Historic
// Preservation Commission sessions) fall through to Other rather than
// being rejected.
func ParseMeetingType(raw string) MeetingType {
	label := strings.ToLower(raw)
	switch {
	case strings.Contains(label, "urban renewal"):
		return UrbanRenewal
	case strings.Contains(label, "planning & zoning"), strings.Contains(label, "planning and zoning"):
		return PlanningZoning
	case strings.Contains(label, "work session"):
		return WorkSession
	case strings.Contains(label, "special"):
		return SpecialCouncil
	case strings.Contains(label, "regular"):
		return RegularCouncil
	default:
		return Other
	}
}

// MeetingTypeFromToken resolves a user-supplied type selector. Both
// the short tokens ("work-session") and the scraper's full labels
// ("City Council Work Session") are accepted; anything unrecognisable
// is an error, since a typo'd allow-list silently matching nothing
// would be worse.
func MeetingTypeFromToken(token string) (MeetingType, error) {
	normalised := strings.ToLower(strings.TrimSpace(token))
	for t := RegularCouncil; t <= Other; t++ {
		if normalised == t.String() {
			return t, nil
		}
	}

	if t := ParseMeetingType(token); t != Other {
		return t, nil
	}

	return Other, fmt.Errorf("unrecognised meeting type %q", token)
}

func (t MeetingType) String() string {
	switch t {
	case RegularCouncil:
		return "regular-council"
	case WorkSession:
		return "work-session"
	case SpecialCouncil:
		return "special-council"
	case PlanningZoning:
		return "planning-zoning"
	case UrbanRenewal:
		return "urban-renewal"
	default:
		return "other"
	}
}
