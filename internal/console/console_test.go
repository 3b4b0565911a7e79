package console

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/notify"
	"github.com/five82/foreman/internal/testutil/fakebackend"
)

type recordedToast struct {
	Kind        notify.Kind
	Title       string
	Description string
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []recordedToast
}

func (n *recordingNotifier) push(kind notify.Kind, title, description string) notify.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, recordedToast{Kind: kind, Title: title, Description: description})
	return notify.Toast{ID: uint64(len(n.toasts)), Kind: kind, Title: title, Description: description}
}

func (n *recordingNotifier) Success(title, description string) notify.Toast {
	return n.push(notify.KindSuccess, title, description)
}

func (n *recordingNotifier) Error(title, description string) notify.Toast {
	return n.push(notify.KindError, title, description)
}

func (n *recordingNotifier) all() []recordedToast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedToast(nil), n.toasts...)
}

func (n *recordingNotifier) ofKind(kind notify.Kind) []recordedToast {
	var out []recordedToast
	for _, t := range n.all() {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func newDeps(t *testing.T, srv *fakebackend.Server) (Deps, *recordingNotifier) {
	t.Helper()
	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	n := &recordingNotifier{}
	return Deps{Client: client, Notify: n}, n
}
