package types

import "fmt"

// Identity names one of the two participants of a two-party lock.
// the representation is unexported so no third value can be built outside
// this package; the zero value is First
type Identity struct {
	second bool
}

var (
	First  = Identity{second: false} // participant 0
	Second = Identity{second: true}  // participant 1
)

// Identities lists both participants in index order.
var Identities = [2]Identity{First, Second}

// ParseIdentity converts an integer participant label into an Identity.
// anything other than 0 or 1 is rejected, never clamped
func ParseIdentity(n int) (Identity, error) {
	switch n {
	case 0:
		return First, nil
	case 1:
		return Second, nil
	default:
		return Identity{}, fmt.Errorf("%w: %d", ErrInvalidIdentity, n)
	}
}

// the competing participant
func (id Identity) Other() Identity {
	return Identity{second: !id.second}
}

// 0 for First, 1 for Second
func (id Identity) Index() int {
	if id.second {
		return 1
	}
	return 0
}

func (id Identity) String() string {
	if id.second {
		return "second"
	}
	return "first"
}
