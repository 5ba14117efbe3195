package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Session describes a dubbing session in a transport-friendly format.
type Session struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	VideoPath       string  `json:"videoPath,omitempty"`
	SourceLanguage  string  `json:"sourceLanguage,omitempty"`
	TargetLanguage  string  `json:"targetLanguage,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	SegmentCount    int     `json:"segmentCount"`
	DegradedCount   int     `json:"degradedCount"`
	OverrunCount    int     `json:"overrunCount"`
	FailureKind     string  `json:"failureKind,omitempty"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
}

// SessionResponse wraps one session.
type SessionResponse struct {
	Message string  `json:"message,omitempty"`
	Session Session `json:"session"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// StageResponse reports a finished transcribe or translate stage.
type StageResponse struct {
	Message        string  `json:"message"`
	Session        Session `json:"session"`
	TranscriptPath string  `json:"transcriptPath"`
	Segments       int     `json:"segments"`
}

// ReportSummary condenses a generation report.
type ReportSummary struct {
	Policy         string  `json:"policy"`
	Segments       int     `json:"segments"`
	SynthesisCalls int     `json:"synthesisCalls"`
	Degraded       int     `json:"degraded"`
	Overruns       int     `json:"overruns"`
	NominalMS      float64 `json:"nominalMs"`
	ActualMS       float64 `json:"actualMs"`
	ReportPath     string  `json:"reportPath"`
}

// GenerateResponse reports a finished generation stage.
type GenerateResponse struct {
	Message        string        `json:"message"`
	Session        Session       `json:"session"`
	FinalVideoPath string        `json:"finalVideoPath"`
	Mixed          bool          `json:"mixed"`
	Report         ReportSummary `json:"report"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse aggregates server readiness.
type StatusResponse struct {
	DatabasePath  string             `json:"databasePath"`
	SessionCounts map[string]int     `json:"sessionCounts"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
