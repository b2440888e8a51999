// Package store provides the durable key-value state shared by the session
// manager and the conversation synchronizer. Values are opaque bytes; the
// callers own serialization and treat unparseable records as absent.
package store

// Store is a synchronous key-value store scoped to one client profile.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value. The second return is false when the
	// key does not exist.
	Get(key string) ([]byte, bool)
	// Set creates or replaces the value for key.
	Set(key string, value []byte) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
	Close() error
}
