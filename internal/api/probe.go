package api

import (
	"context"
	"errors"
)

// Candidate is one concrete guess for a logical operation.
type Candidate struct {
	Method   string
	Path     string
	Body     any
	Mutating bool
}

// ErrNoCandidates is returned when a probe is given nothing to try.
var ErrNoCandidates = errors.New("no candidate endpoints")

// Result describes a successful probe.
type Result struct {
	Value     any
	Candidate Candidate
	Attempts  int
}

type probeConfig struct {
	accept func(any) error
	stop   func(error) bool
	strict bool
}

// ProbeOption customizes a probe.
type ProbeOption func(*probeConfig)

// WithAccept makes a 2xx result that fn rejects count as a failed candidate.
func WithAccept(fn func(any) error) ProbeOption {
	return func(cfg *probeConfig) { cfg.accept = fn }
}

// WithStrictMutations stops the sequence after a failed mutating candidate
// unless the failure says the route is absent (404, 405, 501).
func WithStrictMutations(strict bool) ProbeOption {
	return func(cfg *probeConfig) { cfg.strict = strict }
}

// WithStopOn ends the sequence at the first failure fn matches. That failure
// is returned instead of the last candidate's.
func WithStopOn(fn func(error) bool) ProbeOption {
	return func(cfg *probeConfig) { cfg.stop = fn }
}

// Probe tries candidates strictly in order and returns the first success.
// When every candidate fails the last error is returned.
func Probe(ctx context.Context, d Doer, candidates []Candidate, opts ...ProbeOption) (any, error) {
	res, err := ProbeResult(ctx, d, candidates, opts...)
	return res.Value, err
}

// ProbeResult is Probe but also reports which candidate answered.
func ProbeResult(ctx context.Context, d Doer, candidates []Candidate, opts ...ProbeOption) (Result, error) {
	var cfg probeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var lastErr error
	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: i}, err
		}
		value, err := d.Request(ctx, cand.Method, cand.Path, RequestOptions{Body: cand.Body})
		if err == nil && cfg.accept != nil {
			err = cfg.accept(value)
		}
		if err == nil {
			return Result{Value: value, Candidate: cand, Attempts: i + 1}, nil
		}
		lastErr = err
		if cfg.stop != nil && cfg.stop(err) {
			return Result{Attempts: i + 1}, err
		}
		if cfg.strict && cand.Mutating && !IsRouteAbsent(err) {
			return Result{Attempts: i + 1}, err
		}
	}
	if lastErr == nil {
		return Result{}, ErrNoCandidates
	}
	return Result{Attempts: len(candidates)}, lastErr
}
