package pipeline

// State is the driver lifecycle state
type State int32

const (
	StateInit State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}
