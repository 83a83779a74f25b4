package identity

// State is a session's position in the identity lifecycle.
//
//	Uninitialized → Bootstrapping → {Authenticated, Anonymous}
//	Authenticated → Refreshing → {Authenticated, Anonymous}
//	any → Anonymous on logout
type State int

const (
	Uninitialized State = iota
	Bootstrapping
	Authenticated
	Anonymous
	Refreshing
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	case Refreshing:
		return "refreshing"
	default:
		return "uninitialized"
	}
}
