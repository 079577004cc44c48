package transcript

import (
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/voxdex/core"
)

// UnknownTimeSpan is returned when no date can be derived.
const UnknownTimeSpan = "Unknown"

var uploadDateLayouts = []string{
	"20060102",
	"2006-01-02",
	time.RFC3339,
	"2006-01",
}

// TimeSpan derives a "January 2023" style period from the document's upload
// date. Transcripts carry no intrinsic timestamps, so metadata is the only
// source; when it is missing or unparsable the result is UnknownTimeSpan and
// a warning is logged.
func TimeSpan(meta core.DocumentMeta, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if t, ok := ParseUploadDate(meta.UploadDate); ok {
		return t.Format("January 2006")
	}
	logger.Warn("cannot derive time span from upload date", "doc_id", meta.DocID, "upload_date", meta.UploadDate)
	return UnknownTimeSpan
}

// ParseUploadDate parses an upload date in any supported layout.
func ParseUploadDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range uploadDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
