package hub

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"colornamer/internal/game"
	"colornamer/internal/lobby"
	"colornamer/internal/store"
)

var errStoreDown = errors.New("store down")

// flakyStore fails the first N Gets, then behaves like the wrapped memory
// store. Models a transient backend outage.
type flakyStore struct {
	*store.Memory
	failures int
}

func (f *flakyStore) Get(ctx context.Context, id string) (game.State, error) {
	if f.failures > 0 {
		f.failures--
		return game.State{}, errStoreDown
	}
	return f.Memory.Get(ctx, id)
}

func recvLobby(t *testing.T, ch <-chan *lobby.Lobby, within time.Duration) *lobby.Lobby {
	t.Helper()
	select {
	case lb := <-ch:
		return lb
	case <-time.After(within):
		t.Fatalf("timed out waiting for lobby reply")
		return nil // unreachable
	}
}

func countLobbies(t *testing.T, h *Hub) int {
	t.Helper()
	reply := make(chan int, 1)
	h.Inbox() <- CountLobbies{Reply: reply}
	select {
	case n := <-reply:
		return n
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for count")
		return 0 // unreachable
	}
}

func TestHub_EnsureIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	h := NewHub(ctx, Options{Store: st})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- EnsureLobby{Code: "ABC123", Reply: reply}
	first := recvLobby(t, reply, 100*time.Millisecond)
	if first == nil {
		t.Fatalf("ensure returned nil lobby")
	}

	h.Inbox() <- EnsureLobby{Code: "ABC123", Reply: reply}
	second := recvLobby(t, reply, 100*time.Millisecond)
	if first != second {
		t.Fatalf("ensure must return the same lobby for the same code")
	}

	// Ensure must have seeded the session document.
	if _, err := st.Get(context.Background(), "ABC123"); err != nil {
		t.Fatalf("session document missing after ensure: %v", err)
	}
}

func TestHub_GetNeverCreates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(ctx, Options{Store: store.NewMemory()})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Code: "NOPE99", Reply: reply}
	if lb := recvLobby(t, reply, 100*time.Millisecond); lb != nil {
		t.Fatalf("get of an unknown code must return nil, got %v", lb)
	}
	if n := countLobbies(t, h); n != 0 {
		t.Fatalf("get must not create lobbies, count=%d", n)
	}
}

func TestHub_GetReturnsEnsured(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(ctx, Options{Store: store.NewMemory()})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- EnsureLobby{Code: "ABC123", Reply: reply}
	created := recvLobby(t, reply, 100*time.Millisecond)

	h.Inbox() <- GetLobby{Code: "ABC123", Reply: reply}
	got := recvLobby(t, reply, 100*time.Millisecond)
	if got != created {
		t.Fatalf("get should return the ensured lobby")
	}
	if n := countLobbies(t, h); n != 1 {
		t.Fatalf("want 1 lobby, got %d", n)
	}
}

func TestHub_GetReattachesPersistedSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A document that survived a restart: it exists in the store but no
	// lobby is registered for it.
	st := store.NewMemory()
	doc := game.NewState("ABC123", 1000)
	doc.Phase = game.PhaseGuessing
	doc.Players = []game.Player{{ID: "p1", Name: "Ada", Score: 750, Connected: true}}
	if err := st.Put(context.Background(), "ABC123", doc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	h := NewHub(ctx, Options{Store: st})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Code: "ABC123", Reply: reply}
	lb := recvLobby(t, reply, 100*time.Millisecond)
	if lb == nil {
		t.Fatalf("persisted session must stay reachable after a restart")
	}
	if n := countLobbies(t, h); n != 1 {
		t.Fatalf("want 1 reattached lobby, got %d", n)
	}

	// Reattach must not touch the document.
	got, err := st.Get(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != game.PhaseGuessing || len(got.Players) != 1 || got.Players[0].Score != 750 {
		t.Fatalf("document altered by reattach: %+v", got)
	}
}

func TestHub_EnsureDoesNotClobberOnStoreFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := store.NewMemory()
	doc := game.NewState("ABC123", 1000)
	doc.Phase = game.PhaseGuessing
	doc.Players = []game.Player{{ID: "p1", Name: "Ada", Score: 750, Connected: true}}
	if err := mem.Put(context.Background(), "ABC123", doc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	h := NewHub(ctx, Options{Store: &flakyStore{Memory: mem, failures: 1}})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- EnsureLobby{Code: "ABC123", Reply: reply}
	if lb := recvLobby(t, reply, 100*time.Millisecond); lb != nil {
		t.Fatalf("ensure must fail closed while the store is down")
	}

	// The in-progress session must be exactly as it was.
	got, err := mem.Get(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != game.PhaseGuessing || len(got.Players) != 1 || got.Players[0].Score != 750 {
		t.Fatalf("transient failure overwrote the session: %+v", got)
	}
}

func TestHub_GetFailsClosedOnStoreFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := store.NewMemory()
	if err := mem.Put(context.Background(), "ABC123", game.NewState("ABC123", 1000)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	h := NewHub(ctx, Options{Store: &flakyStore{Memory: mem, failures: 1}})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Code: "ABC123", Reply: reply}
	if lb := recvLobby(t, reply, 100*time.Millisecond); lb != nil {
		t.Fatalf("get must not resolve a lobby while the store is down")
	}

	// Once the store recovers, the same code resolves again.
	h.Inbox() <- GetLobby{Code: "ABC123", Reply: reply}
	if lb := recvLobby(t, reply, 100*time.Millisecond); lb == nil {
		t.Fatalf("recovered store should make the session reachable")
	}
}

func TestHub_RemoveLobby(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(ctx, Options{Store: store.NewMemory()})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- EnsureLobby{Code: "ABC123", Reply: reply}
	_ = recvLobby(t, reply, 100*time.Millisecond)

	h.Inbox() <- RemoveLobby{Code: "ABC123"}

	h.Inbox() <- GetLobby{Code: "ABC123", Reply: reply}
	if lb := recvLobby(t, reply, 100*time.Millisecond); lb != nil {
		t.Fatalf("removed lobby should be gone")
	}
}

func TestHub_RetiredLobbyDropsFromRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	h := NewHub(ctx, Options{Store: st})

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- EnsureLobby{Code: "ABC123", Reply: reply}
	lb := recvLobby(t, reply, 100*time.Millisecond)

	// An idle sweep against the empty session retires the lobby, which
	// reports back through the removals channel.
	lb.Inbox() <- lobby.Sweep{
		Now:            time.Now().UnixMilli(),
		PlayerTimeout:  2 * time.Minute,
		SessionTimeout: 30 * time.Minute,
	}

	deadline := time.After(500 * time.Millisecond)
	for {
		if n := countLobbies(t, h); n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("retired lobby still registered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if _, err := st.Get(context.Background(), "ABC123"); err != store.ErrNotFound {
		t.Fatalf("retired session document should be deleted, got err=%v", err)
	}
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("want 6 chars, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeCharset, r) {
				t.Fatalf("code %q uses a character outside the charset", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("codes should vary, got %v", seen)
	}
}
