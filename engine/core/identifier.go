package core

import (
	"sync"

	"github.com/google/uuid"
)

// Owners tracks every live identifier and a short label for diagnostics.
var (
	ownersMu sync.Mutex
	owners   = map[uuid.UUID]string{}
)

// IdentifierAquireNewID issues a fresh identifier for a labelled owner.
func IdentifierAquireNewID(label string) uuid.UUID {
	id := uuid.New()
	ownersMu.Lock()
	owners[id] = label
	ownersMu.Unlock()
	return id
}

// IdentifierReleaseID returns false if the id was never issued or was released already.
func IdentifierReleaseID(id uuid.UUID) bool {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	if _, ok := owners[id]; !ok {
		return false
	}
	delete(owners, id)
	return true
}

// IdentifierLive lists the labels of identifiers that have not been released.
func IdentifierLive() []string {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	out := make([]string, 0, len(owners))
	for id, label := range owners {
		out = append(out, label+" "+id.String())
	}
	return out
}
