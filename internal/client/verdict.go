package client

// Verdict is the outcome of a check against a sibling service
type Verdict int

const (
	// Denied means the service answered and the check did not pass
	Denied Verdict = iota
	// Allowed means the service answered and the check passed
	Allowed
	// Unreachable means no usable answer was obtained (network error, 5xx)
	Unreachable
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}
