// Package ui provides the terminal admin console for foreman.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea model. It never talks HTTP itself: the
// session manager and the console views (projects, users, roles) do the work
// in commands, and the model reacts to their result messages. Toasts and the
// busy indicator come from a notify.Hub the HTTP client reports into; the
// model waits on the hub's change channel and re-renders.
//
// # Screens
//
//   - Sign in: email and password, or the registration form (ctrl+r)
//   - Main: header, tab bar, the active tab, command bar
//
// # Tabs
//
//   - Projects: list, create, edit, archive (delete after confirmation)
//   - Users: list, invite, change role
//   - Roles: role list beside a permission checklist; save, assign to a user
//   - Activity: follows foreman's own JSON log
//
// # Event Flow
//
//  1. Run builds the model from Options and starts the program
//  2. Switching tabs calls Leave on the old view, so late results are dropped
//  3. A one-second tick refreshes the heartbeat snapshot from state.Store and
//     reads new Activity lines
//  4. Hub changes wake the model; toasts render bottom right
//
// # Preferences
//
// The theme, the last tab and the last sign-in email are written to the
// prefs file as they change.
package ui
