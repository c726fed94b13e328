// Package report builds flat exports of a dataset view and its metrics:
// delimited tables, a Markdown report, a JSON snapshot and a terminal
// summary. It never touches the filesystem.
package report

import (
	"fmt"
	"time"
)

// Timestamp layouts used in export names and report headings
const (
	FileTimestamp    = "20060102_150405"
	HeadingTimestamp = "2006-01-02 15:04:05"
)

// Kind identifies an export artifact
type Kind string

const (
	KindReviewQueue Kind = "review_queue"
	KindAnalysis    Kind = "grading_analysis"
	KindReport      Kind = "report"
	KindMetrics     Kind = "metrics"
)

// ParseKind accepts the artifact names used by the HTTP API.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "review-queue", string(KindReviewQueue):
		return KindReviewQueue, true
	case "analysis", string(KindAnalysis):
		return KindAnalysis, true
	case string(KindReport):
		return KindReport, true
	case string(KindMetrics):
		return KindMetrics, true
	}
	return "", false
}

// DefaultExt returns the extension written for a kind. Tables follow the
// delimiter.
func (k Kind) DefaultExt(delim rune) string {
	switch k {
	case KindReport:
		return "md"
	case KindMetrics:
		return "json"
	default:
		if delim == '\t' {
			return "tsv"
		}
		return "csv"
	}
}

// FileName builds "<kind>_<YYYYMMDD_HHMMSS>.<ext>".
func FileName(kind Kind, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", kind, at.Format(FileTimestamp), ext)
}
