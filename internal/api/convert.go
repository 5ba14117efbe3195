package api

import (
	"revoice/internal/dub"
	"revoice/internal/preflight"
	"revoice/internal/session"
)

// FromSession converts a stored session to its API representation.
func FromSession(sess *session.Session) Session {
	if sess == nil {
		return Session{}
	}
	dto := Session{
		ID:              sess.ID,
		Status:          string(sess.Status),
		VideoPath:       sess.VideoPath,
		SourceLanguage:  sess.SourceLanguage,
		TargetLanguage:  sess.TargetLanguage,
		DurationSeconds: sess.DurationSeconds,
		SegmentCount:    sess.SegmentCount,
		DegradedCount:   sess.DegradedCount,
		OverrunCount:    sess.OverrunCount,
		FailureKind:     sess.FailureKind,
		ErrorMessage:    sess.ErrorMessage,
	}
	if !sess.CreatedAt.IsZero() {
		dto.CreatedAt = sess.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !sess.UpdatedAt.IsZero() {
		dto.UpdatedAt = sess.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromSessions converts a slice, never returning nil.
func FromSessions(sessions []*session.Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, FromSession(sess))
	}
	return out
}

// FromReport summarizes a generation report.
func FromReport(report dub.Report, reportPath string) ReportSummary {
	return ReportSummary{
		Policy:         report.Policy,
		Segments:       len(report.Segments),
		SynthesisCalls: report.SynthesisCalls(),
		Degraded:       report.Degraded(),
		Overruns:       len(report.Overruns),
		NominalMS:      report.NominalMS,
		ActualMS:       report.ActualMS,
		ReportPath:     reportPath,
	}
}

// FromDependencies converts preflight results.
func FromDependencies(results []preflight.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(results))
	for _, r := range results {
		out = append(out, DependencyStatus{
			Name:        r.Name,
			Command:     r.Command,
			Description: r.Description,
			Optional:    r.Optional,
			Available:   r.Available,
			Detail:      r.Detail,
		})
	}
	return out
}
