package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/store"
)

const minReapInterval = time.Second

type session struct {
	ready      chan struct{}
	controller *Controller
	err        error
	lastUsed   time.Time
}

// Sessions keeps one Controller per signed-in user so page loads, form posts
// and the event stream share the same state. Controllers nobody has used for
// the idle TTL and nobody is subscribed to are closed by a background reaper.
type Sessions struct {
	store   store.Store
	opts    Options
	idleTTL time.Duration
	ctx     context.Context
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSessions starts the reaper. Controllers are opened on ctx with request
// cancellation stripped, so they outlive the request that created them.
func NewSessions(ctx context.Context, st store.Store, opts Options, idleTTL time.Duration) *Sessions {
	s := &Sessions{
		store:    st,
		opts:     opts,
		idleTTL:  idleTTL,
		ctx:      context.WithoutCancel(ctx),
		now:      time.Now,
		sessions: make(map[string]*session),
		stop:     make(chan struct{}),
	}

	interval := idleTTL / 2
	if interval < minReapInterval {
		interval = minReapInterval
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.reap()
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

// Get returns the user's controller, opening it on first use.
func (s *Sessions) Get(ctx context.Context, identity auth.Identity) (*Controller, error) {
	s.mu.Lock()
	sess, ok := s.sessions[identity.UID]
	if ok && sess.controller != nil && isDone(sess.controller) {
		delete(s.sessions, identity.UID)
		ok = false
	}
	if !ok {
		sess = &session{ready: make(chan struct{})}
		s.sessions[identity.UID] = sess
		s.mu.Unlock()

		openCtx := log.WithLogger(s.ctx, log.LoggerFromContext(ctx))
		c, err := Open(openCtx, s.store, identity, s.opts)

		s.mu.Lock()
		sess.controller, sess.err = c, err
		if err != nil && s.sessions[identity.UID] == sess {
			delete(s.sessions, identity.UID)
		}
		close(sess.ready)
	}
	sess.lastUsed = s.now()
	s.mu.Unlock()

	select {
	case <-sess.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if sess.err != nil {
		return nil, sess.err
	}
	return sess.controller, nil
}

// Len reports how many controllers are open or opening.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) reap() {
	now := s.now()
	var idle []*Controller

	s.mu.Lock()
	for uid, sess := range s.sessions {
		c := sess.controller
		if c == nil {
			continue
		}
		if isDone(c) || (now.Sub(sess.lastUsed) > s.idleTTL && c.Subscribers() == 0) {
			delete(s.sessions, uid)
			idle = append(idle, c)
		}
	}
	s.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		log.LoggerFromContext(s.ctx).Debug("closed idle profile sessions", slog.Int("count", len(idle)))
	}
}

// Close stops the reaper and closes every controller.
func (s *Sessions) Close() error {
	close(s.stop)
	s.wg.Wait()

	s.mu.Lock()
	var open []*Controller
	for uid, sess := range s.sessions {
		if sess.controller != nil {
			open = append(open, sess.controller)
		}
		delete(s.sessions, uid)
	}
	s.mu.Unlock()

	for _, c := range open {
		c.Close()
	}
	return nil
}

func isDone(c *Controller) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}
