// Package api provides the HTTP client for the project-management backend.
//
// # Overview
//
// The backend's route surface is not pinned down: depending on the
// deployment, projects may live under /projects or /api/projects, login may
// be /auth/login, /login or /token, and so on. This package therefore has two
// halves:
//
//   - client.go: a JSON/HTTP client that attaches the bearer credential,
//     decodes whatever comes back and classifies failures
//   - probe.go and routes.go: ordered candidate tables per logical operation
//     and one shared routine that walks them until a candidate succeeds
//
// # Client Usage
//
//	client, err := api.NewClient(cfg.BaseURL,
//		api.WithTokenSource(tokens.Current),
//		api.WithActivity(hub),
//		api.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	body, err := client.Retrieve(ctx, "/projects")
//
// An empty base URL is accepted; paths are then sent verbatim, which only
// works behind a transport that resolves relative URLs (same-origin setups).
//
// # Response Handling
//
// Bodies are read as text and parsed as JSON with json.Number for numbers.
// Text that is not JSON is returned as a plain string instead of failing.
// Statuses outside 2xx produce *HTTPError whose Message comes from the body's
// detail, message or error field, then the raw text, then a generic
// "Request failed (status)". Network failures produce *TransportError.
//
// The Activity collaborator sees exactly one Begin and one End per request
// that reaches the network, including failed ones.
//
// # Probing
//
//	value, err := api.Probe(ctx, client, api.ListProjects())
//	items := api.NormalizeList(value)
//
// Candidates run strictly in order, never concurrently. The first success
// wins and later candidates are not attempted. If all fail, the last error is
// returned; an empty table returns ErrNoCandidates. Each candidate is tried
// once per call: this is fallback, not retry.
//
// Mutating candidates are retried on failure too, which assumes a failed
// write did not partially apply. WithStrictMutations narrows this to failures
// that mean the route is absent (404, 405, 501).
package api
