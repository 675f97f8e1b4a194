// Package runtime holds the shared connection-facing state of the relay and
// the routing of messages through it. It contains no transport or storage
// details beyond their interfaces.
package runtime

import (
	"sort"
	"sync"
)

// Presence is the process-wide set of user identities currently online.
// A single instance is built in main and injected into every component that
// needs it; it is never a package-level global.
//
// Membership means "at least one live connection announced this identity".
// Presence is a set, not a reference count: a user with several simultaneous
// connections is marked offline as soon as any one of them disconnects.
type Presence struct {
	users sync.Map // userID -> struct{}
}

func NewPresence() *Presence {
	return &Presence{}
}

// MarkOnline adds the identity to the online set. Idempotent.
func (p *Presence) MarkOnline(userID string) {
	p.users.Store(userID, struct{}{})
}

// MarkOffline removes the identity. Removing an absent identity is a no-op.
func (p *Presence) MarkOffline(userID string) {
	p.users.Delete(userID)
}

// Snapshot returns a sorted point-in-time copy of the online set. Concurrent
// mutation during the scan never corrupts the caller's view.
func (p *Presence) Snapshot() []string {
	users := make([]string, 0)
	p.users.Range(func(key, _ any) bool {
		users = append(users, key.(string))
		return true
	})
	sort.Strings(users)
	return users
}
