package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/foreman/internal/session"
)

func authenticated(name string) session.Snapshot {
	return session.Snapshot{
		State:         session.StateAuthenticated,
		HasCredential: true,
		Profile:       map[string]any{"name": name},
		Claims:        &session.Claims{Subject: "u-1"},
	}
}

func TestStore_UpdateAndSnapshot(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update(authenticated("Ada"), false, nil)
	snap := s.Snapshot()

	if snap.Session.State != session.StateAuthenticated {
		t.Fatalf("State = %q, want %q", snap.Session.State, session.StateAuthenticated)
	}
	if got := snap.Session.DisplayName(); got != "Ada" {
		t.Fatalf("DisplayName() = %q, want Ada", got)
	}
	if snap.LastChecked.Before(before) {
		t.Fatalf("LastChecked = %v, want >= %v", snap.LastChecked, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	snap.Session.Profile["name"] = "mutated"
	snap.Session.Claims.Subject = "mutated"
	again := s.Snapshot()
	if again.Session.Profile["name"] != "Ada" {
		t.Fatalf("Profile leaked mutation: %v", again.Session.Profile)
	}
	if again.Session.Claims.Subject != "u-1" {
		t.Fatalf("Claims leaked mutation: %v", again.Session.Claims.Subject)
	}
}

func TestStore_FailureKeepsSession(t *testing.T) {
	var s Store
	s.Update(authenticated("Ada"), false, nil)

	origErr := errors.New("boom")
	s.Update(session.Snapshot{}, false, origErr)
	snap := s.Snapshot()

	if got := snap.Session.DisplayName(); got != "Ada" {
		t.Fatalf("DisplayName() = %q, want Ada after failure", got)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatal("LastError should wrap the original error")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.Update(session.Snapshot{}, false, errors.New("fail 1"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 1 failure")
	}

	s.Update(session.Snapshot{}, false, errors.New("fail 2"))
	snap = s.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.Update(authenticated("Ada"), false, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false after success")
	}
}

func TestStore_ExpiredAndReset(t *testing.T) {
	var s Store
	s.Update(authenticated("Ada"), true, nil)
	if !s.Snapshot().Expired {
		t.Fatal("Expired = false, want true")
	}

	s.Reset()
	snap := s.Snapshot()
	if snap.Expired || snap.Session.State != "" || !snap.LastChecked.IsZero() {
		t.Fatalf("Reset left state behind: %+v", snap)
	}
}
