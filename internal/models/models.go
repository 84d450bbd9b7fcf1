package models

import (
	"strings"
	"time"
)

// Enums

// Status is the value written to a queue row's status cell. Rows move
// Pending/empty -> Processing -> one of Completed, Upload Failed, or an
// Error status carrying a truncated message.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusProcessing   Status = "Processing"
	StatusCompleted    Status = "Completed"
	StatusUploadFailed Status = "Upload Failed"
)

const (
	// ErrorStatusPrefix marks a row that failed mid-pipeline. The rest of
	// the cell is the leading fragment of the error message.
	ErrorStatusPrefix = "Error: "

	// maxErrorChars bounds the message fragment written to the sheet so a
	// long stack of wrapped errors doesn't blow up the cell.
	maxErrorChars = 50
)

// ErrorStatus builds the status value for a failed row: the prefix plus the
// first 50 characters of the error message. Counted in runes, not bytes —
// scripts and titles here are mostly Devanagari.
func ErrorStatus(err error) Status {
	msg := err.Error()
	if runes := []rune(msg); len(runes) > maxErrorChars {
		msg = string(runes[:maxErrorChars])
	}
	return Status(ErrorStatusPrefix + msg)
}

// IsError reports whether s carries a truncated failure message.
func (s Status) IsError() bool {
	return strings.HasPrefix(string(s), ErrorStatusPrefix)
}

// Terminal reports whether s is an end state (no further processing).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusUploadFailed || s.IsError()
}

// IsPending reports whether a raw status cell marks the row as workable.
// Only an empty cell or the exact word "Pending" (after trimming) qualifies;
// anything else — including Processing left by a crashed run — is skipped.
func IsPending(cell string) bool {
	trimmed := strings.TrimSpace(cell)
	return trimmed == "" || trimmed == string(StatusPending)
}

// Models

// Row is one unit of work from the sheet. Num is the 1-based sheet row
// number (header is row 1, data starts at row 2) and is what all cell
// writes are keyed on.
type Row struct {
	Num       int    `json:"row_num"`
	Title     string `json:"title"`
	Script    string `json:"script"`
	SourceURL string `json:"source_url,omitempty"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
}

// Outcome records how one row ended, for the local history store.
type Outcome struct {
	RunID      string    `json:"run_id"`
	RowNum     int       `json:"row_num"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	ResultURL  string    `json:"result_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunRecord summarizes one sweep over the queue.
type RunRecord struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"rows_processed"`
	Completed  int        `json:"rows_completed"`
	Failed     int        `json:"rows_failed"`
}

// DTOs for API responses

type WorkerState string

const (
	WorkerIdle    WorkerState = "idle"
	WorkerRunning WorkerState = "running"
)

// WorkerStatus is the live snapshot served by GET /v1/status.
type WorkerStatus struct {
	State     WorkerState `json:"state"`
	RunID     string      `json:"run_id,omitempty"`
	RowNum    int         `json:"row_num,omitempty"`
	RowTitle  string      `json:"row_title,omitempty"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	LastRun   *RunRecord  `json:"last_run,omitempty"`
}

type QueueResponse struct {
	Rows    []Row `json:"rows"`
	Pending int   `json:"pending"`
}

type HistoryResponse struct {
	Outcomes []Outcome `json:"outcomes"`
}
