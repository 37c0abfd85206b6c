package session

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageResult records the outcome of one pipeline stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   StageStatus   `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Session is one processed upload.
type Session struct {
	ID           string        `json:"id"`
	Filename     string        `json:"filename"`
	Status       Status        `json:"status"`
	Strategy     string        `json:"strategy,omitempty"`
	Engine       string        `json:"engine,omitempty"`
	Backend      string        `json:"backend,omitempty"`
	Stages       []StageResult `json:"stages"`
	Transcript   string        `json:"transcript,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	AudioSeconds float64       `json:"audio_seconds,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// HasNotes reports whether the session produced downloadable notes.
func (s *Session) HasNotes() bool {
	return s != nil && s.Notes != ""
}

// Stage returns the result for name, if recorded.
func (s *Session) Stage(name string) (StageResult, bool) {
	if s == nil {
		return StageResult{}, false
	}
	for _, st := range s.Stages {
		if st.Stage == name {
			return st, true
		}
	}
	return StageResult{}, false
}

// Expired reports whether the session is past its retention window.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
