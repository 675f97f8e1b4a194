package runtime

import "sync"

// Sessions associates transport connections with resolved user identities.
// A binding is created by the first addUser event on a connection and read
// during teardown to know which identity to mark offline.
type Sessions struct {
	bindings sync.Map // connectionID -> userID
}

func NewSessions() *Sessions {
	return &Sessions{}
}

// Bind associates a connection with an identity. Binding the same connection
// twice is last-write-wins; bindings of other connections are never touched.
func (s *Sessions) Bind(connectionID, userID string) {
	s.bindings.Store(connectionID, userID)
}

// Resolve returns the bound identity, or ok=false for a connection that never
// identified itself. Never an error: callers drop sends from unbound
// connections and treat an unbound teardown as an anonymous disconnect.
func (s *Sessions) Resolve(connectionID string) (string, bool) {
	v, ok := s.bindings.Load(connectionID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Unbind removes the binding. Called once, at connection teardown, after the
// identity has been resolved for the disconnect notification.
func (s *Sessions) Unbind(connectionID string) {
	s.bindings.Delete(connectionID)
}
