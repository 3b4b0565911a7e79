// Package state holds the session health shared between the heartbeat and
// the UI.
//
// # Overview
//
// The heartbeat goroutine in package app periodically re-reads the current
// profile. Each outcome is recorded with Store.Update; the UI reads a copy
// with Store.Snapshot on every tick to decide whether to show the header as
// online, offline, or expired.
//
//	Producer (heartbeat):          Consumer (UI):
//	┌──────────────────┐          ┌──────────────────┐
//	│ RefreshProfile() │          │                  │
//	│       ↓          │          │                  │
//	│ store.Update()   │─────────→│ store.Snapshot() │
//	│       ↓          │ (mutex)  │       ↓          │
//	│ sleep / backoff  │          │ render header    │
//	└──────────────────┘          └──────────────────┘
//
// # Failure Tracking
//
// A failed heartbeat keeps the previous session data and increments
// ConsecutiveFailures. Snapshot.IsOffline reports true from the second
// failure in a row; any success resets the counter.
//
// # Copies
//
// Snapshot deep-copies the profile map and the claims so the UI can never
// mutate shared state.
package state
