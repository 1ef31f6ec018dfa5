package model

// AuthCredentials is the request scoped identity of a caller.  It is
// rebuilt from the store on every request and never cached, so collections
// created during a request only show up in OwnerOf on the next one.
type AuthCredentials struct {
	TokenID uint64
	UserID  uint64
	IsAdmin bool
	// OwnerOf lists the collections where the caller holds a managing role.
	OwnerOf []uint64
}

// Owns reports whether collectionID is in OwnerOf.
func (c AuthCredentials) Owns(collectionID uint64) bool {
	for _, id := range c.OwnerOf {
		if id == collectionID {
			return true
		}
	}
	return false
}
