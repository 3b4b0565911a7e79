// Package app is the composition root of the foreman console.
//
// # Startup
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.LoadDotenv()   .env into the environment
//	       ├─────> config.Load()         TOML file, then FOREMAN_* overrides
//	       ├─────> openLogger()          JSON records to the log file
//	       ├─────> tokenstore.New()      file, redis or memory
//	       ├─────> notify.NewHub()       toasts and busy signal
//	       ├─────> api.NewClient()       reads the token from the manager
//	       ├─────> session.Manager.Init  restore any stored credential
//	       ├─────> StartPoller()         session heartbeat
//	       └─────> ui.Run()              TUI (blocks)
//
// # Heartbeat
//
// While a session is authenticated the poller re-reads the profile every 30
// seconds and records the outcome in a state.Store the UI header reads:
//
//   - success resets the failure count
//   - 401 marks the session expired
//   - transport failures back off exponentially, capped at 5 minutes; two in
//     a row show the header as offline
//   - other HTTP errors are logged and ignored
//
// # Errors
//
// Configuration, log file and token store failures are fatal and returned
// from Run. An unreadable stored credential is not: the session starts
// anonymous and an error toast is shown.
package app
