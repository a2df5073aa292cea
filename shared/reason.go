package shared

// Reason represents an entry or exit reason.
type Reason int

const (
	BreakAboveResistance Reason = iota
	BreakBelowSupport
	StopLossHit
	TargetHit
)

// String stringifies the provided reason.
func (r Reason) String() string {
	switch r {
	case BreakAboveResistance:
		return "price break above resistance"
	case BreakBelowSupport:
		return "price break below support"
	case StopLossHit:
		return "stop loss hit"
	case TargetHit:
		return "target hit"
	default:
		return "unknown"
	}
}

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}
