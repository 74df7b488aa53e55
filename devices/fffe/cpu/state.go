package cpu

// State describes the execution state of the interpreter.
type State int32

// Known states.
const (
	Ready   State = iota // Reset, nothing executed yet.
	Running              // Executing instructions.
	Halted               // Waiting for a key press.
	Stopped              // Terminal; Reset is required to run again.
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
