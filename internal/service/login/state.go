package login

// State is a stage of a login attempt.
type State int32

// Login attempt states.
const (
	StateIdle State = iota
	StateLoading
	StateAwaitingRedirect
	StateCapturing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateAwaitingRedirect:
		return "awaiting-redirect"
	case StateCapturing:
		return "capturing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
