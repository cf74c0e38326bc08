// Package session defines the captured session record, reads it from a live
// browsing session and persists it atomically for later reuse.
package session
