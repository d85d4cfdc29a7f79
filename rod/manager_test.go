package rod

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLauncher records launched sessions without starting Chrome.
type fakeLauncher struct {
	mu       sync.Mutex
	sessions []*session
	stopped  map[*session]int
	fail     bool
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{stopped: make(map[*session]int)}
}

func (f *fakeLauncher) launch(id larder.Identity) (*session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("chrome not found")
	}
	s := &session{identity: id, pid: 1000 + len(f.sessions)}
	s.stop = func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped[s]++
		return nil
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeLauncher) stops(s *session) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped[s]
}

func (f *fakeLauncher) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

// rotatingIdentities hands out identities named id-0, id-1, ...
func rotatingIdentities() *mock.IdentityProvider {
	var mu sync.Mutex
	n := 0
	return &mock.IdentityProvider{PickFn: func() larder.Identity {
		mu.Lock()
		defer mu.Unlock()
		id := larder.Identity{Name: fmt.Sprintf("id-%d", n), UserAgent: fmt.Sprintf("Agent/%d", n)}
		n++
		return id
	}}
}

func TestBrowserManager_Acquire(t *testing.T) {
	t.Parallel()

	t.Run("keeps one identity for the life of a browser", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		bm, err := newBrowserManager(fl.launch, WithMaxPages(3), WithBrowserIdentities(rotatingIdentities()))
		require.NoError(t, err)
		defer bm.Close()

		for range 3 {
			s, err := bm.acquire()
			require.NoError(t, err)
			assert.Equal(t, "id-0", s.identity.Name)
			bm.release(s)
		}
		assert.Equal(t, "Agent/0", bm.Identity().UserAgent)
	})

	t.Run("launches a browser with a new identity after max pages", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		bm, err := newBrowserManager(fl.launch, WithMaxPages(2), WithBrowserIdentities(rotatingIdentities()))
		require.NoError(t, err)
		defer bm.Close()

		for range 2 {
			s, err := bm.acquire()
			require.NoError(t, err)
			bm.release(s)
		}
		s, err := bm.acquire()
		require.NoError(t, err)
		bm.release(s)

		require.Len(t, fl.sessions, 2)
		assert.Same(t, fl.sessions[1], s)
		assert.Equal(t, "id-1", s.identity.Name)
		assert.Equal(t, 1, fl.stops(fl.sessions[0]), "idle retired browser is stopped at once")
	})

	t.Run("waits for open pages before stopping a retired browser", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		bm, err := newBrowserManager(fl.launch, WithMaxPages(1))
		require.NoError(t, err)
		defer bm.Close()

		first, err := bm.acquire()
		require.NoError(t, err)
		second, err := bm.acquire()
		require.NoError(t, err)
		require.NotSame(t, first, second)

		assert.Zero(t, fl.stops(first), "page still open")
		bm.release(first)
		assert.Equal(t, 1, fl.stops(first))
		bm.release(second)
		assert.Zero(t, fl.stops(second), "current browser keeps running")
	})

	t.Run("keeps the current browser when a replacement fails to launch", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		bm, err := newBrowserManager(fl.launch, WithMaxPages(1))
		require.NoError(t, err)
		defer bm.Close()

		s, err := bm.acquire()
		require.NoError(t, err)
		bm.release(s)

		fl.setFail(true)
		again, err := bm.acquire()
		require.NoError(t, err)
		bm.release(again)

		assert.Same(t, s, again)
		assert.Zero(t, fl.stops(s))
	})

	t.Run("presents an empty identity without a provider", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		bm, err := newBrowserManager(fl.launch)
		require.NoError(t, err)
		defer bm.Close()

		assert.Equal(t, larder.Identity{}, bm.Identity())
		assert.Equal(t, 1000, bm.LauncherPID())
	})

	t.Run("returns the launch error from the first browser", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		fl.setFail(true)

		_, err := newBrowserManager(fl.launch)

		assert.EqualError(t, err, "chrome not found")
	})
}

func TestBrowserManager_Close(t *testing.T) {
	t.Parallel()

	t.Run("stops the browser once and rejects new pages", func(t *testing.T) {
		t.Parallel()

		fl := newFakeLauncher()
		bm, err := newBrowserManager(fl.launch)
		require.NoError(t, err)

		open, err := bm.acquire()
		require.NoError(t, err)

		require.NoError(t, bm.Close())
		require.NoError(t, bm.Close())
		bm.release(open)

		assert.Equal(t, 1, fl.stops(fl.sessions[0]))
		assert.Zero(t, bm.LauncherPID())

		_, err = bm.acquire()
		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
	})
}
