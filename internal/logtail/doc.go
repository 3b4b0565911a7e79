// Package logtail reads foreman's own log file for the Activity view.
//
// # Reading
//
// Read returns the last N lines of a file using a ring buffer, so memory
// stays O(N) regardless of file size. It is used once when the Activity view
// opens.
//
// Follower then picks up only what was appended since the previous call. It
// remembers a byte offset, holds back an unfinished trailing line, and starts
// over when the file shrinks (truncation or rotation).
//
// # Decoding
//
// The console logs through slog's JSON handler. Parse turns one such line
// into an Entry (time, level, message, remaining attributes) and Entry.Format
// renders it as
//
//	2026-03-01 10:15:30 WARN – request failed method=PATCH path=/projects/7 status=404
//
// Lines that are not JSON objects pass through unchanged.
//
// # Error Handling
//
// A missing file is not an error: Read and Follower.Next return no lines.
// Other I/O errors are returned wrapped.
package logtail
