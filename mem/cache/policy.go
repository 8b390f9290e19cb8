package cache

import "github.com/sarchlab/avdcache/mem/cache/internal/tagging"

// Policy names a replacement policy.
type Policy string

// Supported replacement policies. Names are matched case-sensitively.
const (
	LRU    Policy = "LRU"
	FIFO   Policy = "FIFO"
	Random Policy = "RANDOM"
)

// ParsePolicy checks that name is a supported replacement policy.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case LRU, FIFO, Random:
		return p, nil
	default:
		return "", &UnknownPolicyError{Name: name}
	}
}

func createVictimFinder(p Policy, seed uint64) tagging.VictimFinder {
	switch p {
	case LRU:
		return tagging.NewLRUVictimFinder()
	case FIFO:
		return tagging.NewFIFOVictimFinder()
	case Random:
		return tagging.NewRandomVictimFinder(seed)
	default:
		panic("unknown replacement policy: " + string(p))
	}
}
