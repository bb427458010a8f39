// Package profile drives one user's profile record through loading, viewing,
// editing and saving, backed by a live watch on users/{uid}.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/klipach/cozycurated/apperror"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/store"
)

const (
	DefaultSuccessDelay = 800 * time.Millisecond

	usersPath         = "users"
	saveFailedMessage = "Something went wrong. Please try again later."
	pathLogField      = "path"
)

var (
	errClosed      = errors.New("profile session closed")
	errWatchEnded  = errors.New("profile watch ended before first snapshot")
	errNotEditing  = apperror.Conflict("profile is not being edited")
	errSaving      = apperror.Conflict("a save is already in progress")
	errNameMissing = apperror.ValidationFailed("name", "Name is required")
)

type Options struct {
	// SuccessDelay is how long the saved indicator shows before returning to
	// view mode. Zero means DefaultSuccessDelay.
	SuccessDelay time.Duration
}

// Controller owns the profile state of one signed-in user.
type Controller struct {
	store        store.Store
	identity     auth.Identity
	path         string
	successDelay time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	state       State
	lastWritten *contract.UserProfile
	listeners   map[chan State]struct{}
	timer       *time.Timer
	saveSeq     int
	closed      bool
}

func Path(uid string) string {
	return store.Join(usersPath, uid)
}

// Open watches the user's record and blocks until the first snapshot decides
// the initial mode. The watch lives until ctx is done or Close is called.
func Open(ctx context.Context, st store.Store, identity auth.Identity, opts Options) (*Controller, error) {
	if identity.UID == "" {
		return nil, apperror.Unauthorized("sign in to manage your profile")
	}
	delay := opts.SuccessDelay
	if delay <= 0 {
		delay = DefaultSuccessDelay
	}

	path := Path(identity.UID)
	logger := log.LoggerFromContext(ctx).With(
		slog.String(log.UserIDLogField, identity.UID),
		slog.String(pathLogField, path),
	)

	watchCtx, cancel := context.WithCancel(ctx)
	ch, err := st.Watch(watchCtx, path)
	if err != nil {
		cancel()
		return nil, err
	}

	c := &Controller{
		store:        st,
		identity:     identity,
		path:         path,
		successDelay: delay,
		logger:       logger,
		cancel:       cancel,
		done:         make(chan struct{}),
		listeners:    make(map[chan State]struct{}),
		state: State{
			Mode:        ModeLoading,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
			PhotoURL:    identity.PhotoURL,
		},
	}

	select {
	case snap, ok := <-ch:
		if !ok {
			cancel()
			return nil, errWatchEnded
		}
		p, err := decodeProfile(snap)
		if err != nil {
			cancel()
			return nil, err
		}
		c.apply(p)
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	go c.run(ch)
	return c, nil
}

func (c *Controller) run(ch <-chan store.Snapshot) {
	defer close(c.done)
	for snap := range ch {
		p, err := decodeProfile(snap)
		if err != nil {
			c.logger.Error("error while decoding profile snapshot", slog.String(log.ErrorMsgLogField, err.Error()))
			continue
		}
		c.apply(p)
	}
	c.logger.Debug("profile watch ended")
}

func (c *Controller) apply(p *contract.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch c.state.Mode {
	case ModeLoading, ModeViewing:
		c.state.Profile = p
		c.state.Fields = fieldsFrom(p, c.identity.DisplayName)
		c.state.RemoteChanged = false
		if p == nil {
			c.state.Mode = ModeEditing
		} else {
			c.state.Mode = ModeViewing
		}
	case ModeEditing, ModeSaving:
		if sameProfile(c.state.Profile, p) {
			return
		}
		c.state.Profile = p
		if !sameProfile(p, c.lastWritten) {
			c.state.RemoteChanged = true
		}
	}
	c.notifyLocked()
}

// Edit switches from viewing to editing.
func (c *Controller) Edit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	switch c.state.Mode {
	case ModeEditing:
		return nil
	case ModeViewing:
	default:
		return apperror.Conflict("profile cannot be edited while " + c.state.Mode.String())
	}
	c.state.Mode = ModeEditing
	c.state.Fields = fieldsFrom(c.state.Profile, c.identity.DisplayName)
	c.state.SaveSuccess = false
	c.state.RemoteChanged = false
	c.state.Err = ""
	c.notifyLocked()
	return nil
}

// Cancel abandons the edit and returns to the stored record. A user without a
// stored record has nothing to return to.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	if c.state.Mode != ModeEditing {
		return errNotEditing
	}
	if c.state.Profile == nil {
		return apperror.NotFound("profile", c.identity.UID)
	}
	c.state.Mode = ModeViewing
	c.state.Fields = fieldsFrom(c.state.Profile, c.identity.DisplayName)
	c.state.RemoteChanged = false
	c.state.Err = ""
	c.notifyLocked()
	return nil
}

// Submit overwrites the stored record with fields plus the signed-in email.
// The lock is released across the store write; a second Submit during that
// window is rejected.
func (c *Controller) Submit(ctx context.Context, fields contract.ProfileRequest) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	switch c.state.Mode {
	case ModeEditing:
	case ModeSaving:
		c.mu.Unlock()
		return errSaving
	default:
		c.mu.Unlock()
		return errNotEditing
	}
	if strings.TrimSpace(fields.Name) == "" {
		c.state.Err = errNameMissing.Message
		c.notifyLocked()
		c.mu.Unlock()
		return errNameMissing
	}

	profile := contract.UserProfile{
		Name:  fields.Name,
		Email: c.identity.Email,
		Bio:   fields.Bio,
		Role:  fields.Role,
	}
	c.state.Mode = ModeSaving
	c.state.Fields = fields
	c.state.SaveSuccess = false
	c.state.RemoteChanged = false
	c.state.Err = ""
	c.lastWritten = &profile
	c.notifyLocked()
	c.mu.Unlock()

	err := c.store.Set(ctx, c.path, profile)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.Join(err, errClosed)
	}
	if err != nil {
		c.logger.Error("error while saving profile", slog.String(log.ErrorMsgLogField, err.Error()))
		c.state.Mode = ModeEditing
		c.state.Err = saveFailedMessage
		c.notifyLocked()
		return err
	}

	// a foreign snapshot seen during the save may be newer than our write,
	// the watch already holds the latest record then
	if !c.state.RemoteChanged {
		c.state.Profile = &profile
	}
	c.state.SaveSuccess = true
	c.saveSeq++
	seq := c.saveSeq
	c.timer = time.AfterFunc(c.successDelay, func() { c.finishSave(seq) })
	c.notifyLocked()
	c.logger.Info("profile saved")
	return nil
}

func (c *Controller) finishSave(seq int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.saveSeq || c.state.Mode != ModeSaving {
		return
	}
	c.state.Mode = ModeViewing
	c.state.SaveSuccess = false
	c.state.RemoteChanged = false
	c.state.Fields = fieldsFrom(c.state.Profile, c.identity.DisplayName)
	c.notifyLocked()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe delivers the current state and every later change. Slow readers
// only see the latest state. The channel is closed by unsubscribe or Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- c.state.clone()
	c.listeners[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.listeners[ch]; ok {
				delete(c.listeners, ch)
				close(ch)
			}
		})
	}
}

// Subscribers reports how many Subscribe channels are open.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// Done is closed once the record watch has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	for ch := range c.listeners {
		delete(c.listeners, ch)
		close(ch)
	}
	c.mu.Unlock()

	c.cancel()
	<-c.done
	return nil
}

func (c *Controller) notifyLocked() {
	s := c.state.clone()
	for ch := range c.listeners {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
