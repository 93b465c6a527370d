package shared

// Scope is the ownership predicate applied to every store query.
// It is resolved from the acting identity before any filter parsing so the
// security-relevant decision stays in one testable place.
type Scope struct {
	OwnerID int64
	All     bool
}

// ScopeFor resolves the ownership scope for an identity. Admins see every
// owner's records; commercials only their own.
func ScopeFor(id Identity) Scope {
	if id.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{OwnerID: id.UserID}
}

// ScopeOwner restricts queries to a single owner regardless of role.
func ScopeOwner(ownerID int64) Scope {
	return Scope{OwnerID: ownerID}
}
