// Package mem defines the vocabulary shared by the memory models.
package mem

import "fmt"

// For capacity
const (
	_       = iota
	KB uint64 = 1 << (10 * iota)
	MB
	GB
)

// AccessType tells if a memory reference reads or writes.
type AccessType int

// Memory reference kinds.
const (
	Read AccessType = iota
	Write
)

// String returns the one-letter form used in traces.
func (t AccessType) String() string {
	switch t {
	case Read:
		return "R"
	case Write:
		return "W"
	default:
		return fmt.Sprintf("AccessType(%d)", int(t))
	}
}

// ParseAccessType converts the trace form of an access type back.
func ParseAccessType(s string) (AccessType, error) {
	switch s {
	case "R", "r":
		return Read, nil
	case "W", "w":
		return Write, nil
	default:
		return 0, fmt.Errorf("unknown access type %q", s)
	}
}
