package session

// State of the session lifecycle
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateRefreshing
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// EndReason says why a session ended
type EndReason string

const (
	EndLogout  EndReason = "logout"
	EndExpired EndReason = "expired"
)

// Trigger names what started a refresh
type Trigger string

const (
	TriggerScheduled    Trigger = "scheduled"
	TriggerPreflight    Trigger = "preflight"
	TriggerUnauthorized Trigger = "unauthorized"
	TriggerNoCredential Trigger = "no_credential"
	TriggerManual       Trigger = "manual"
	TriggerHydrate      Trigger = "hydrate"
)

// Metrics receives lifecycle events; internal/metrics provides the Prometheus implementation
type Metrics interface {
	RefreshCompleted(trigger Trigger, err error, seconds float64)
	RequestRetried()
	SessionEnded(reason EndReason)
}

type nopMetrics struct{}

func (nopMetrics) RefreshCompleted(Trigger, error, float64) {}
func (nopMetrics) RequestRetried()                          {}
func (nopMetrics) SessionEnded(EndReason)                   {}
