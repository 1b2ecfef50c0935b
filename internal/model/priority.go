package model

import "fmt"

const (
	priorityHigh   = "High"
	priorityNormal = "Normal"
	priorityLow    = "Low"
)

// String returns the wire spelling of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return priorityHigh
	case PriorityLow:
		return priorityLow
	default:
		return priorityNormal
	}
}

// MarshalJSON encodes the priority as its wire string.
func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes the wire string. Unknown values are rejected rather
// than silently mapped to Normal so malformed input surfaces at the boundary.
func (p *Priority) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"High"`:
		*p = PriorityHigh
	case `"Normal"`, `null`:
		*p = PriorityNormal
	case `"Low"`:
		*p = PriorityLow
	default:
		return fmt.Errorf("invalid priority %s", string(data))
	}
	return nil
}
