package session

import (
	"strings"
	"time"
)

// Status is the lifecycle position of a session.
type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusTranslating  Status = "translating"
	StatusTranslated   Status = "translated"
	StatusGenerating   Status = "generating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusTranscribing,
	StatusTranscribed,
	StatusTranslating,
	StatusTranslated,
	StatusGenerating,
	StatusCompleted,
	StatusFailed,
}

var processingStatuses = []Status{StatusTranscribing, StatusTranslating, StatusGenerating}

// ParseStatus converts a string to a Status, case-insensitively.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsProcessing reports whether a stage is running for the status.
func (s Status) IsProcessing() bool {
	for _, status := range processingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Session is one persisted dubbing job.
type Session struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	VideoPath       string    `json:"video_path,omitempty"`
	SourceLanguage  string    `json:"source_language,omitempty"`
	TargetLanguage  string    `json:"target_language,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	SegmentCount    int       `json:"segment_count"`
	DegradedCount   int       `json:"degraded_count"`
	OverrunCount    int       `json:"overrun_count"`
	FailureKind     string    `json:"failure_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Fail records a failed stage on the session.
func (s *Session) Fail(kind string, err error) {
	s.Status = StatusFailed
	s.FailureKind = kind
	if err != nil {
		s.ErrorMessage = err.Error()
	}
}

// ClearFailure resets failure fields before a stage reruns.
func (s *Session) ClearFailure() {
	s.FailureKind = ""
	s.ErrorMessage = ""
}
