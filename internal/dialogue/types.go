package dialogue

import "errors"

// ErrEngineUnavailable wraps every failure to reach or be understood by
// the dialogue engine. Callers surface a generic apology and keep the
// turn alive.
var ErrEngineUnavailable = errors.New("dialogue engine unavailable")

// Action is the structured request forwarded to the engine for one turn.
type Action struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// Trace types the engine is known to emit. Anything else is passed
// through and dropped by the formatter.
const (
	TraceTypeText  = "text"
	TraceTypeImage = "image"
)

// TracePayload carries the content of one reply segment.
type TracePayload struct {
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Trace is one structured reply segment from the engine.
type Trace struct {
	Type    string       `json:"type"`
	Payload TracePayload `json:"payload"`
}

// SessionVars is the per-user variable bundle pushed to the engine before
// each fallback turn. CurrentTime is presentation-only; nothing gates on
// it.
type SessionVars struct {
	TeamName    string `json:"team_name"`
	IsAdmin     bool   `json:"is_admin"`
	PlanStatus  string `json:"plan_status"`
	PlanName    string `json:"plan_name"`
	UserID      string `json:"user_id"`
	CurrentTime string `json:"current_time"`
}
