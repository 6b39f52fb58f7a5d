package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_BindAndResolve(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	connID := uuid.NewString()
	r.Register(connID, "127.0.0.1:1111")

	req.NoError(r.Bind(connID, "alice"))

	resolved, ok := r.Resolve("alice")
	req.True(ok)
	req.Equal(connID, resolved)

	identity, ok := r.Identity(connID)
	req.True(ok)
	req.Equal("alice", identity)
}

func TestSessionRegistry_BindRejectsDuplicate(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	first := uuid.NewString()
	second := uuid.NewString()
	r.Register(first, "127.0.0.1:1111")
	r.Register(second, "127.0.0.1:2222")

	req.NoError(r.Bind(first, "alice"))
	req.ErrorIs(r.Bind(second, "alice"), errUsernameTaken)

	// The losing connection stays unbound and the winner keeps the mapping.
	_, bound := r.Identity(second)
	req.False(bound)
	resolved, ok := r.Resolve("alice")
	req.True(ok)
	req.Equal(first, resolved)
}

func TestSessionRegistry_BindRejectsEmptyUsername(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	connID := uuid.NewString()
	r.Register(connID, "127.0.0.1:1111")

	req.ErrorIs(r.Bind(connID, ""), errInvalidUsername)
	req.Empty(r.Snapshot())
}

func TestSessionRegistry_BindRejectsRebind(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	connID := uuid.NewString()
	r.Register(connID, "127.0.0.1:1111")

	req.NoError(r.Bind(connID, "alice"))
	req.ErrorIs(r.Bind(connID, "alice2"), errUsernameAlreadySet)

	// Original binding is untouched.
	identity, ok := r.Identity(connID)
	req.True(ok)
	req.Equal("alice", identity)
	req.Equal([]string{"alice"}, r.Snapshot())
}

func TestSessionRegistry_BindUnknownConnection(t *testing.T) {
	r := NewSessionRegistry()
	require.Error(t, r.Bind(uuid.NewString(), "alice"))
}

func TestSessionRegistry_UnregisterReleasesIdentity(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	connID := uuid.NewString()
	r.Register(connID, "127.0.0.1:1111")
	req.NoError(r.Bind(connID, "alice"))

	released, had := r.Unregister(connID)
	req.True(had)
	req.Equal("alice", released)

	_, ok := r.Resolve("alice")
	req.False(ok)
	req.Zero(r.Len())

	// The released name is claimable again.
	next := uuid.NewString()
	r.Register(next, "127.0.0.1:2222")
	req.NoError(r.Bind(next, "alice"))
}

func TestSessionRegistry_UnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	connID := uuid.NewString()
	r.Register(connID, "127.0.0.1:1111")
	req.NoError(r.Bind(connID, "alice"))

	_, had := r.Unregister(connID)
	req.True(had)

	released, had := r.Unregister(connID)
	req.False(had)
	req.Empty(released)
}

func TestSessionRegistry_UnregisterUnbound(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	connID := uuid.NewString()
	r.Register(connID, "127.0.0.1:1111")

	released, had := r.Unregister(connID)
	req.False(had)
	req.Empty(released)
}

func TestSessionRegistry_SnapshotIsSortedCopy(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	for _, name := range []string{"carol", "alice", "bob"} {
		connID := uuid.NewString()
		r.Register(connID, "127.0.0.1:1111")
		req.NoError(r.Bind(connID, name))
	}

	snapshot := r.Snapshot()
	req.Equal([]string{"alice", "bob", "carol"}, snapshot)

	// Mutating the returned slice must not affect the registry.
	snapshot[0] = "mallory"
	req.Equal([]string{"alice", "bob", "carol"}, r.Snapshot())
}

func TestSessionRegistry_ConcurrentBindSingleWinner(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()

	const contenders = 32
	connIDs := make([]string, contenders)
	for i := range connIDs {
		connIDs[i] = uuid.NewString()
		r.Register(connIDs[i], fmt.Sprintf("127.0.0.1:%d", 10000+i))
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan error, contenders)

	for _, connID := range connIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			results <- r.Bind(id, "alice")
		}(connID)
	}

	close(start)
	wg.Wait()
	close(results)

	successes, duplicates := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == errUsernameTaken:
			duplicates++
		default:
			t.Fatalf("unexpected bind error: %v", err)
		}
	}

	req.Equal(1, successes)
	req.Equal(contenders-1, duplicates)
	req.Equal([]string{"alice"}, r.Snapshot())
}

func TestSessionRegistry_ConcurrentChurn(t *testing.T) {
	r := NewSessionRegistry()

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				connID := uuid.NewString()
				name := fmt.Sprintf("user-%d-%d", n, j)
				r.Register(connID, "127.0.0.1:1111")
				if err := r.Bind(connID, name); err != nil {
					continue
				}
				r.Snapshot()
				if resolved, ok := r.Resolve(name); !ok || resolved != connID {
					t.Errorf("resolve(%q) lost the binding", name)
				}
				r.Unregister(connID)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, r.Snapshot())
	require.Zero(t, r.Len())
}
