package playback_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gaanbot/gaanbot/internal/playback"
	"github.com/gaanbot/gaanbot/internal/transcode"
)

func newTestRegistry(t *testing.T) (*playback.Registry, *sync.Map) {
	t.Helper()
	var created sync.Map
	registry := playback.NewRegistry(func(sessionID string) *playback.Controller {
		n, _ := created.LoadOrStore(sessionID, 0)
		created.Store(sessionID, n.(int)+1)
		return playback.NewController(playback.ControllerConfig{
			SessionID: sessionID,
			Spawner: playback.SpawnerFunc(func(_ context.Context, _ transcode.Source) (playback.Handle, error) {
				return nil, errors.New("unused")
			}),
			Sink:     &recordingSink{},
			Notifier: newRecordingNotifier(),
		})
	})
	t.Cleanup(registry.Shutdown)
	return registry, &created
}

func TestRegistryCreatesOnDemand(t *testing.T) {
	registry, created := newTestRegistry(t)

	a := registry.GetOrCreate("guild-a")
	if again := registry.GetOrCreate("guild-a"); again != a {
		t.Error("GetOrCreate returned a different controller for the same session")
	}
	b := registry.GetOrCreate("guild-b")
	if b == a {
		t.Error("distinct sessions share a controller")
	}

	if n, _ := created.Load("guild-a"); n != 1 {
		t.Errorf("factory ran %v times for guild-a, want 1", n)
	}
	if got := registry.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestRegistryGet(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, ok := registry.Get("guild-a"); ok {
		t.Error("Get() found a session that was never created")
	}
	want := registry.GetOrCreate("guild-a")
	got, ok := registry.Get("guild-a")
	if !ok || got != want {
		t.Error("Get() did not return the created controller")
	}
}

func TestRegistryRemoveClosesController(t *testing.T) {
	registry, _ := newTestRegistry(t)

	c := registry.GetOrCreate("guild-a")
	registry.Remove("guild-a")

	if _, ok := registry.Get("guild-a"); ok {
		t.Error("session still present after Remove")
	}
	if _, err := c.Enqueue(t.Context(), request("a")); !errors.Is(err, playback.ErrSessionClosed) {
		t.Errorf("Enqueue() after Remove = %v, want ErrSessionClosed", err)
	}

	// Unknown sessions are a no-op.
	registry.Remove("guild-a")
	registry.Remove("never-existed")
}

func TestRegistryShutdownClosesEverySession(t *testing.T) {
	registry, _ := newTestRegistry(t)

	a := registry.GetOrCreate("guild-a")
	b := registry.GetOrCreate("guild-b")

	registry.Shutdown()

	if got := registry.Count(); got != 0 {
		t.Errorf("Count() after Shutdown = %d, want 0", got)
	}
	for _, c := range []*playback.Controller{a, b} {
		if _, err := c.Enqueue(t.Context(), request("a")); !errors.Is(err, playback.ErrSessionClosed) {
			t.Errorf("Enqueue() after Shutdown = %v, want ErrSessionClosed", err)
		}
	}
}
