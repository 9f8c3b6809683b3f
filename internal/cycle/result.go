package cycle

// Result reports the outcome of a cycle operation that does not fail loudly.
type Result int

const (
	OK Result = iota
	PersonNotFound
	PersonExists
	AlreadyClosed
	TooEarly
	CycleClosed
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case PersonNotFound:
		return "person not found"
	case PersonExists:
		return "person already exists"
	case AlreadyClosed:
		return "cycle already closed"
	case TooEarly:
		return "cycle cannot close on or before its start date"
	case CycleClosed:
		return "cycle is closed"
	default:
		return "unknown"
	}
}

// Applied reports whether the operation took effect.
func (r Result) Applied() bool { return r == OK }
