package nav

// Flow says which gate states a command or screen belongs to.
type Flow int

const (
	// FlowNone needs no backend at all (help, version, theme).
	FlowNone Flow = iota

	// FlowAny needs the backend but runs in either state (logout, whoami, ui).
	FlowAny

	// FlowUnauthenticated belongs to the Login/Register side.
	FlowUnauthenticated

	// FlowAuthenticated belongs to the Tasks/Profile side.
	FlowAuthenticated
)

// Admits reports whether a command of flow f may run when the gate is in s.
func (f Flow) Admits(s State) bool {
	switch f {
	case FlowNone, FlowAny:
		return true
	case FlowUnauthenticated:
		return s == Unauthenticated
	case FlowAuthenticated:
		return s == Authenticated
	default:
		return false
	}
}

// NeedsBackend reports whether f requires a platform connection.
func (f Flow) NeedsBackend() bool {
	return f != FlowNone
}
