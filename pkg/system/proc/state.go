package proc

// State is the scheduler state from the third field of /proc/<pid>/stat.
// Known states are stored as their canonical letter.
type State byte

const (
	StateRunning         State = 'R'
	StateSleeping        State = 'S' // interruptible wait
	StateDiskSleep       State = 'D' // uninterruptible wait
	StateZombie          State = 'Z'
	StateTracedOrStopped State = 'T' // also 't' (tracing stop, 2.6.33+)
	StatePaging          State = 'W' // before 2.6.0
	StateDead            State = 'X' // also 'x' (2.6.33 to 3.13)
	StateIdle            State = 'I' // 4.14+
	StateUnknown         State = '?'
)

// stateOf maps a kernel state letter to a State. Letters the kernel may add
// later (or K/P from old kernels) map to StateUnknown.
func stateOf(c byte) State {
	switch c {
	case 'R':
		return StateRunning
	case 'S':
		return StateSleeping
	case 'D':
		return StateDiskSleep
	case 'Z':
		return StateZombie
	case 'T', 't':
		return StateTracedOrStopped
	case 'W':
		return StatePaging
	case 'X', 'x':
		return StateDead
	case 'I':
		return StateIdle
	default:
		return StateUnknown
	}
}

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateDiskSleep:
		return "disk-sleep"
	case StateZombie:
		return "zombie"
	case StateTracedOrStopped:
		return "stopped"
	case StatePaging:
		return "paging"
	case StateDead:
		return "dead"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Letter returns the single character used for s in a stat line.
func (s State) Letter() string {
	return string(rune(stateOf(byte(s))))
}

// MarshalText renders s as its stat letter so JSON output matches the kernel's.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.Letter()), nil
}
