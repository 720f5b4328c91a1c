package hevsup

// State represents the lifecycle state of a Supervisor instance.
type State int

const (
	// StateStopped is the initial state and the state after a clean Stop().
	StateStopped State = iota

	// StateStarting means Start() was called and components are coming up.
	StateStarting

	// StateRunning means the control loop is ticking.
	StateRunning

	// StateStopping means Stop() was called and shutdown is in progress.
	StateStopping

	// StateCrashed means the control loop exited with an error or shutdown
	// timed out. Start() may be called again.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// HealthStatus is the per-tick health classification a decision was made
// under.
type HealthStatus int

const (
	HealthNominal HealthStatus = iota
	HealthWarning
	HealthCritical
)

// String returns a human-readable representation of the status.
func (h HealthStatus) String() string {
	switch h {
	case HealthNominal:
		return "NOMINAL"
	case HealthWarning:
		return "WARNING"
	case HealthCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// LinkState classifies the command link to the MCU.
type LinkState int

const (
	LinkDown LinkState = iota
	LinkUp
	LinkDegraded
)

// String returns a human-readable representation of the link state.
func (s LinkState) String() string {
	switch s {
	case LinkUp:
		return "UP"
	case LinkDegraded:
		return "DEGRADED"
	case LinkDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent is emitted when the supervisor's lifecycle state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// LinkChangeEvent is emitted when the command link changes classification,
// for example on the DOWN to UP recovery handshake.
type LinkChangeEvent struct {
	Previous LinkState
	Current  LinkState
}

// DecisionEvent is emitted once per control tick with the arbitrated
// command. Sent reports whether the command was transmitted to the MCU;
// a fail-safe posture held while the link is down is not.
type DecisionEvent struct {
	TickID  uint64
	Command []float64
	Sent    bool
	Status  HealthStatus
}

// EventHandler receives notifications about supervisor operations.
// All methods are called synchronously from supervisor goroutines;
// implementations must return quickly and must not call back into the
// Supervisor.
type EventHandler interface {
	// OnStateChange is called when the lifecycle state changes.
	OnStateChange(event StateChangeEvent)

	// OnLinkChange is called when the command link classification changes.
	OnLinkChange(event LinkChangeEvent)

	// OnDecision is called after every control tick.
	OnDecision(event DecisionEvent)
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnLinkChange(LinkChangeEvent)   {}
func (BaseEventHandler) OnDecision(DecisionEvent)       {}
