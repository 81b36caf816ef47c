package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownPlayer is returned for ids the directory has never seen
var ErrUnknownPlayer = errors.New("unknown player")

// StaticDirectory is an in-memory id to display name table. Verified
// identities can be remembered so later lookups find their names.
type StaticDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewStaticDirectory creates a directory seeded with names
func NewStaticDirectory(names map[string]string) *StaticDirectory {
	d := &StaticDirectory{names: make(map[string]string, len(names))}
	for id, n := range names {
		d.names[id] = n
	}
	return d
}

// DisplayName returns the name registered for playerID
func (d *StaticDirectory) DisplayName(ctx context.Context, playerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.names[playerID]
	if !ok {
		return "", ErrUnknownPlayer
	}
	return n, nil
}

// Remember records the name carried by a verified identity
func (d *StaticDirectory) Remember(id Identity) {
	if id.PlayerID == "" || id.Name == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[id.PlayerID] = id.Name
}

// RememberingVerifier records every verified identity in a directory
type RememberingVerifier struct {
	Verifier
	Directory *StaticDirectory
}

// Verify delegates and remembers the caller's name
func (v RememberingVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	id, err := v.Verifier.Verify(ctx, credential)
	if err != nil {
		return Identity{}, err
	}
	v.Directory.Remember(id)
	return id, nil
}
