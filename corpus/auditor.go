package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/transcript"
)

const (
	// MinSpeakerCoverage is the fraction of labeled lines below which a
	// transcript is flagged.
	MinSpeakerCoverage = 0.8

	// outlierPercentile selects the token-count threshold for outliers.
	outlierPercentile = 0.75

	// maxReportedOutliers bounds the outlier list in the persisted report.
	maxReportedOutliers = 10
)

// Finding is one audit failure or warning.
type Finding struct {
	DocID   string `json:"doc_id"`
	Message string `json:"message"`
}

// Outlier is a transcript whose token count is at or above the threshold.
type Outlier struct {
	DocID      string `json:"doc_id"`
	TokenCount int    `json:"token_count"`
}

// DocumentStats is what the auditor learned about one transcript.
type DocumentStats struct {
	DocID           string  `json:"doc_id"`
	TokenCount      int     `json:"token_count"`
	TurnCount       int     `json:"turn_count"`
	SpeakerCoverage float64 `json:"speaker_coverage"`
}

// AuditReport is the outcome of one audit.
type AuditReport struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	TotalDocuments int             `json:"total_documents"`
	Failures       []Finding       `json:"failures"`
	Warnings       []Finding       `json:"warnings"`
	Documents      []DocumentStats `json:"documents"`
	TokenThreshold int             `json:"token_threshold"`
	Outliers       []Outlier       `json:"top_outliers"`
	ErrorCount     int             `json:"error_count"`
	WarningCount   int             `json:"warning_count"`
}

// Failed reports whether any failure was recorded.
func (r *AuditReport) Failed() bool {
	return len(r.Failures) > 0
}

// Err returns an ErrAuditFailed-wrapping error naming the first failure, or
// nil when the audit passed.
func (r *AuditReport) Err() error {
	if !r.Failed() {
		return nil
	}
	f := r.Failures[0]
	return fmt.Errorf("%w: %d failure(s), first: %s: %s", ErrAuditFailed, len(r.Failures), f.DocID, f.Message)
}

func (r *AuditReport) fail(docID, format string, args ...any) {
	r.Failures = append(r.Failures, Finding{DocID: docID, Message: fmt.Sprintf(format, args...)})
}

func (r *AuditReport) warn(docID, format string, args ...any) {
	r.Warnings = append(r.Warnings, Finding{DocID: docID, Message: fmt.Sprintf(format, args...)})
}

// Auditor checks a corpus before ingestion.
type Auditor struct {
	transcriptsDir string
	metadataDir    string
	normalizer     *transcript.Normalizer
	reportPath     string
	clock          func() time.Time
	logger         *slog.Logger
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithReportPath appends every report as one JSON line to path.
func WithReportPath(path string) AuditorOption {
	return func(a *Auditor) {
		a.reportPath = path
	}
}

// WithClock overrides the report timestamp source.
func WithClock(clock func() time.Time) AuditorOption {
	return func(a *Auditor) {
		a.clock = clock
	}
}

// WithAuditLogger sets the logger.
func WithAuditLogger(logger *slog.Logger) AuditorOption {
	return func(a *Auditor) {
		a.logger = logger
	}
}

// NewAuditor creates an auditor over the two corpus directories.
func NewAuditor(transcriptsDir, metadataDir string, normalizer *transcript.Normalizer, opts ...AuditorOption) *Auditor {
	a := &Auditor{
		transcriptsDir: transcriptsDir,
		metadataDir:    metadataDir,
		normalizer:     normalizer,
		clock:          time.Now,
		logger:         slog.Default().With("component", "auditor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run audits every transcript. The returned error covers conditions that
// prevent auditing at all (missing directories, an unwritable report); audit
// failures are reported through AuditReport.Failed.
func (a *Auditor) Run(ctx context.Context) (*AuditReport, error) {
	inv, err := LoadSources(a.transcriptsDir, a.metadataDir)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		GeneratedAt:    a.clock().UTC(),
		TotalDocuments: len(inv.Sources),
		Failures:       []Finding{},
		Warnings:       []Finding{},
	}

	for _, id := range inv.OrphanMetadata {
		report.fail(id, "metadata has no matching transcript")
	}

	for _, src := range inv.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.auditSource(report, src)
	}

	a.flagOutliers(report)
	report.ErrorCount = len(report.Failures)
	report.WarningCount = len(report.Warnings)

	a.logger.Info("corpus audit complete",
		"documents", report.TotalDocuments,
		"failures", report.ErrorCount,
		"warnings", report.WarningCount,
		"token_threshold", report.TokenThreshold)

	if a.reportPath != "" {
		if err := AppendReport(a.reportPath, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (a *Auditor) auditSource(report *AuditReport, src Source) {
	switch {
	case src.MetadataPath == "":
		report.fail(src.DocID, "transcript has no matching metadata")
	case src.MetadataErr != nil:
		report.fail(src.DocID, "%v", src.MetadataErr)
	default:
		for _, problem := range core.ValidateDocumentMeta(src.DocumentMeta) {
			report.fail(src.DocID, "%s", problem)
		}
	}

	text, err := ReadTranscript(src)
	if err != nil {
		if errors.Is(err, ErrUndecodable) {
			report.fail(src.DocID, "transcript is not valid UTF-8")
		} else {
			report.fail(src.DocID, "read transcript: %v", err)
		}
		return
	}

	analysis := a.normalizer.Analyze(src.DocID, text)
	if len(analysis.Turns) == 0 {
		report.fail(src.DocID, "transcript is empty after normalization")
		return
	}

	coverage := analysis.SpeakerCoverage()
	if coverage < MinSpeakerCoverage {
		report.warn(src.DocID, "speaker labels on %.1f%% of lines", coverage*100)
	}
	report.Documents = append(report.Documents, DocumentStats{
		DocID:           src.DocID,
		TokenCount:      analysis.TokenCount,
		TurnCount:       len(analysis.Turns),
		SpeakerCoverage: coverage,
	})
}

// flagOutliers warns on every document whose token count reaches the 75th
// percentile of the corpus.
func (a *Auditor) flagOutliers(report *AuditReport) {
	if len(report.Documents) == 0 {
		return
	}
	counts := make([]int, len(report.Documents))
	for i, d := range report.Documents {
		counts[i] = d.TokenCount
	}
	slices.Sort(counts)
	report.TokenThreshold = counts[max(int(float64(len(counts))*outlierPercentile)-1, 0)]

	var outliers []Outlier
	for _, d := range report.Documents {
		if d.TokenCount >= report.TokenThreshold {
			outliers = append(outliers, Outlier{DocID: d.DocID, TokenCount: d.TokenCount})
			report.warn(d.DocID, "token count %d at or above threshold %d", d.TokenCount, report.TokenThreshold)
		}
	}
	slices.SortStableFunc(outliers, func(x, y Outlier) int {
		return y.TokenCount - x.TokenCount
	})
	report.Outliers = outliers[:min(len(outliers), maxReportedOutliers)]
}

// AppendReport appends report to path as a single JSON line, creating parent
// directories as needed.
func AppendReport(path string, report *AuditReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if err := jsonx.NewEncoder(f).Encode(report); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
