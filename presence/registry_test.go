package presence

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	id     string
	frames [][]byte
}

func (h *fakeHandle) ID() string              { return h.id }
func (h *fakeHandle) Send(frame []byte) error { h.frames = append(h.frames, frame); return nil }

func newRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_Online_While_Any_Handle_Remains(t *testing.T) {
	req := require.New(t)
	r := newRegistry()
	h1 := &fakeHandle{id: "tab-1"}
	h2 := &fakeHandle{id: "tab-2"}

	r.Register("nurse-1", "tenant-1", h1)
	r.Register("nurse-1", "tenant-1", h2)
	req.True(r.IsOnline("nurse-1"))
	req.Len(r.LiveHandles("nurse-1"), 2)

	wentOffline, _ := r.Deregister("nurse-1", h1)
	req.False(wentOffline, "one tab closing must not demote presence")
	req.True(r.IsOnline("nurse-1"))

	wentOffline, lastSeen := r.Deregister("nurse-1", h2)
	req.True(wentOffline)
	req.False(r.IsOnline("nurse-1"))
	req.Positive(lastSeen)

	status, stamped := r.Status("nurse-1")
	req.Equal(StatusOffline, status)
	req.Equal(lastSeen, stamped)
}

func Test_Unknown_Participant_Is_Offline(t *testing.T) {
	req := require.New(t)
	r := newRegistry()

	req.False(r.IsOnline("ghost"))
	req.Empty(r.LiveHandles("ghost"))

	status, lastSeen := r.Status("ghost")
	req.Equal(StatusOffline, status)
	req.Zero(lastSeen)

	wentOffline, _ := r.Deregister("ghost", &fakeHandle{id: "h"})
	req.False(wentOffline)
}

func Test_Register_Same_Handle_Twice(t *testing.T) {
	req := require.New(t)
	r := newRegistry()
	h := &fakeHandle{id: "tab-1"}

	r.Register("nurse-1", "tenant-1", h)
	r.Register("nurse-1", "tenant-1", h)
	req.Len(r.LiveHandles("nurse-1"), 1)

	wentOffline, _ := r.Deregister("nurse-1", h)
	req.True(wentOffline)
}

func Test_TenantHandles_Scoping(t *testing.T) {
	req := require.New(t)
	r := newRegistry()

	handles := make(map[string]*fakeHandle)
	for i, reg := range []struct{ participant, tenant string }{
		{"a1", "tenant-a"}, {"a2", "tenant-a"}, {"b1", "tenant-b"},
	} {
		h := &fakeHandle{id: fmt.Sprintf("h%d", i)}
		handles[reg.participant] = h
		r.Register(reg.participant, reg.tenant, h)
	}

	peers := r.TenantHandles("tenant-a", "a1")
	req.Len(peers, 1)
	req.Equal(handles["a2"].ID(), peers[0].ID())

	req.Empty(r.TenantHandles("tenant-b", "b1"))
}
