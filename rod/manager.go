package rod

import (
	"fmt"
	"sync"

	"github.com/fwojciec/larder"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the default number of pages a browser serves before it
// is replaced.
const DefaultMaxPages = 75

// session is one launched browser and the identity it presents for its
// whole life. Counters are guarded by BrowserManager.mu.
type session struct {
	browser  *rod.Browser
	identity larder.Identity
	pid      int
	stop     func() error

	served  int64
	active  int
	retired bool

	once    sync.Once
	stopErr error
}

func (s *session) shutdown() error {
	s.once.Do(func() {
		if s.stop != nil {
			s.stopErr = s.stop()
		}
	})
	return s.stopErr
}

// launchFunc starts a browser presenting id.
type launchFunc func(id larder.Identity) (*session, error)

// BrowserManager hands out browser sessions. Chrome's memory grows with
// every page it renders, so after maxPages pages a fresh browser with a
// newly picked identity takes over. The retired browser stays up until
// the pages already open in it are released.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	identities larder.IdentityProvider
	maxPages   int64
	launch     launchFunc

	mu      sync.Mutex
	current *session
	closed  bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets how many pages a browser serves before it is replaced.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithBrowserIdentities sets the provider consulted each time a browser is
// launched. The picked user agent is passed to Chrome on the command line
// and its headers are sent with every page the browser opens.
func WithBrowserIdentities(p larder.IdentityProvider) ManagerOption {
	return func(bm *BrowserManager) {
		bm.identities = p
	}
}

// NewBrowserManager launches the first headless Chrome.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	return newBrowserManager(launchChrome, opts...)
}

func newBrowserManager(launch launchFunc, opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		launch:   launch,
	}
	for _, opt := range opts {
		opt(bm)
	}

	s, err := bm.launch(bm.pick())
	if err != nil {
		return nil, err
	}
	bm.current = s
	return bm, nil
}

// acquire returns the session the next page should open in. Every call
// must be paired with release.
func (bm *BrowserManager) acquire() (*session, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil, larder.Errorf(larder.EINVALID, "fetcher is closed")
	}
	if bm.maxPages > 0 && bm.current.served >= bm.maxPages {
		bm.replaceLocked()
	}

	s := bm.current
	s.served++
	s.active++
	return s, nil
}

// release marks a page opened from s as closed.
func (bm *BrowserManager) release(s *session) {
	bm.mu.Lock()
	s.active--
	done := s.retired && s.active == 0
	bm.mu.Unlock()

	if done {
		_ = s.shutdown()
	}
}

// replaceLocked launches a successor to the current browser. If the launch
// fails the current browser keeps serving.
func (bm *BrowserManager) replaceLocked() {
	next, err := bm.launch(bm.pick())
	if err != nil {
		return
	}

	old := bm.current
	old.retired = true
	bm.current = next
	if old.active == 0 {
		_ = old.shutdown()
	}
}

func (bm *BrowserManager) pick() larder.Identity {
	if bm.identities == nil {
		return larder.Identity{}
	}
	return bm.identities.Pick()
}

// Identity returns the identity the current browser presents.
func (bm *BrowserManager) Identity() larder.Identity {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil {
		return larder.Identity{}
	}
	return bm.current.identity
}

// LauncherPID returns the process ID of the current browser launcher, or
// zero once closed.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil {
		return 0
	}
	return bm.current.pid
}

// Close shuts down the current browser, failing any pages still open in
// it. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	if bm.closed {
		bm.mu.Unlock()
		return nil
	}
	bm.closed = true
	s := bm.current
	bm.current = nil
	s.retired = true
	bm.mu.Unlock()

	return s.shutdown()
}

// launchChrome starts a headless Chrome with stability flags, presenting
// id's user agent.
func launchChrome(id larder.Identity) (*session, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)
	if id.UserAgent != "" {
		l = l.Set("user-agent", id.UserAgent)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &session{
		browser:  browser,
		identity: id,
		pid:      l.PID(),
		stop: func() error {
			err := browser.Close()
			l.Kill()
			return err
		},
	}, nil
}
