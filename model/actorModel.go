// model/actor.go
package model

// Actor is the authenticated identity attached to a request.
// Staff actors bypass ownership and unpaid-balance restrictions.
type Actor struct {
	UserID int64
	Staff  bool
}

// Owns reports whether the actor may act on resources of ownerID.
func (a Actor) Owns(ownerID int64) bool { return a.Staff || a.UserID == ownerID }
