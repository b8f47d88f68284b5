package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/brokerecon/backend/src/report"
)

// FileInput is one uploaded file, already read into memory. Content may be
// wrapped in the password-protection envelope.
type FileInput struct {
	Name    string
	Content []byte
}

// SkippedFile records a broker file that could not be processed and why. The
// run continues with the remaining files.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Error types consumed by the UI to pick a remediation path. An account
// mismatch means the wrong files were paired together; a classification
// failure means the files were readable but no broker identity could be
// established. Re-uploading is the fix for both, but the user needs to know
// which file property to correct.
const (
	ErrorTypeFileUnreadable       = "file_unreadable"
	ErrorTypeClassificationFailed = "classification_failed"
	ErrorTypeAccountMismatch      = "cp_code_mismatch"
)

// RunResult is the structured outcome of one reconciliation run. Business
// failures (unreadable clearing file, mismatched accounts) are encoded here,
// not returned as Go errors; those are reserved for infrastructure faults.
type RunResult struct {
	Success                bool          `json:"success"`
	RunID                  string        `json:"run_id,omitempty"`
	AccountLabel           string        `json:"account_label,omitempty"`
	MatchedCount           int           `json:"matched_count"`
	UnmatchedClearingCount int           `json:"unmatched_clearing_count"`
	UnmatchedBrokerCount   int           `json:"unmatched_broker_count"`
	MatchRate              float64       `json:"match_rate"`
	SkippedFiles           []SkippedFile `json:"skipped_files,omitempty"`
	Error                  string        `json:"error,omitempty"`
	ErrorType              string        `json:"error_type,omitempty"`
}

// RunRecord is one row of the persisted run history.
type RunRecord struct {
	ID                     string    `json:"id"`
	AccountLabel           string    `json:"account_label"`
	TradeDate              string    `json:"trade_date,omitempty"`
	ClearingFile           string    `json:"clearing_file"`
	BrokerFiles            string    `json:"broker_files"`
	TotalClearing          int       `json:"total_clearing"`
	TotalBroker            int       `json:"total_broker"`
	MatchedCount           int       `json:"matched_count"`
	UnmatchedClearingCount int       `json:"unmatched_clearing_count"`
	UnmatchedBrokerCount   int       `json:"unmatched_broker_count"`
	MatchRate              float64   `json:"match_rate"`
	TotalBrokerage         float64   `json:"total_brokerage"`
	TotalTaxes             float64   `json:"total_taxes"`
	ErrorType              string    `json:"error_type,omitempty"`
	ErrorMessage           string    `json:"error_message,omitempty"`
	EnhancedPath           string    `json:"enhanced_path,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// ErrRunNotFound is returned for unknown run IDs; ErrReportExpired when the
// run exists in history but its full report has aged out of the cache.
var (
	ErrRunNotFound   = errors.New("reconciliation run not found")
	ErrReportExpired = errors.New("reconciliation report no longer cached; re-run the reconciliation")
)

// ReconService is the orchestration surface for the HTTP layer.
type ReconService interface {
	RunReconciliation(ctx context.Context, clearing FileInput, brokerFiles []FileInput) (*RunResult, error)
	GetRun(id string) (*RunRecord, error)
	ListRuns(limit int) ([]RunRecord, error)
	GetReport(id string) (*report.Report, error)
	EnhancedPath(id string) (string, error)
}
