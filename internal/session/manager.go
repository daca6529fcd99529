// Package session implements the per-origin session lifecycle: issuing a
// token on login, persisting and restoring it, expiring it on a timer and
// reporting the authentication state to route guards.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

// DefaultLifetime is the fixed validity window of an issued token.
const DefaultLifetime = 24 * time.Hour

const (
	invalidCredentialsMessage = "Invalid credentials"
	backgroundTimeout         = 5 * time.Second
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrStorageUnavailable = errors.New("session storage unavailable")
)

// Authenticator resolves an exact email/password pair to a user.
type Authenticator interface {
	Lookup(email, password string) (models.User, bool)
}

type EventSink interface {
	Publish(ctx context.Context, event models.Event) error
}

// State is a consistent snapshot of a manager's session.
type State struct {
	User            *models.User `json:"user"`
	Token           string       `json:"token,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
}

type LoginResult struct {
	Success bool            `json:"success"`
	Role    models.UserRole `json:"role,omitempty"`
	Error   string          `json:"error,omitempty"`
	// Err is the failure cause, for callers that map it to a status code.
	Err error `json:"-"`
}

type Options struct {
	Origin      string
	Key         string
	Storage     Storage
	Codec       Codec
	Credentials Authenticator
	Clock       Clock
	Navigator   Navigator
	Events      EventSink
	Lifetime    time.Duration
	Logger      zerolog.Logger
}

type Manager struct {
	origin   string
	key      string
	storage  Storage
	codec    Codec
	creds    Authenticator
	clock    Clock
	nav      Navigator
	events   EventSink
	lifetime time.Duration
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	expiry      time.Time
	timer       Timer
	generation  uint64
	initialized bool
}

func NewManager(opts Options) *Manager {
	if opts.Codec == nil {
		opts.Codec = PlaceholderCodec{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(string) {})
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}

	return &Manager{
		origin:   opts.Origin,
		key:      opts.Key,
		storage:  opts.Storage,
		codec:    opts.Codec,
		creds:    opts.Credentials,
		clock:    opts.Clock,
		nav:      opts.Navigator,
		events:   opts.Events,
		lifetime: opts.Lifetime,
		log:      opts.Logger.With().Str("origin", opts.Origin).Logger(),
		state:    State{Loading: true},
	}
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Initialize restores the session held in storage. Only the first call has
// any effect. A missing, unreadable, malformed or expired token leaves the
// manager unauthenticated with the storage key purged.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return
	}
	m.initialized = true

	token, found, err := m.storage.Get(ctx, m.key)
	if err != nil {
		m.log.Error().Err(err).Msg("session restore: storage read failed")
		m.failRestoreLocked(ctx)
		m.mu.Unlock()
		m.nav.Navigate(LoginPath)
		return
	}

	if !found || token == "" {
		m.state = State{}
		m.mu.Unlock()
		return
	}

	claims, err := m.codec.Decode(token)
	if err != nil {
		m.log.Warn().Err(err).Msg("session restore: discarding undecodable token")
		m.failRestoreLocked(ctx)
		m.mu.Unlock()
		m.nav.Navigate(LoginPath)
		return
	}

	if claims.Expired(m.clock.Now()) {
		m.log.Info().Err(ErrSessionExpired).Str("user_id", claims.ID).Msg("session restore: token expired")
		m.failRestoreLocked(ctx)
		m.mu.Unlock()
		m.nav.Navigate(LoginPath)
		m.publish(models.EventSessionExpired, claims.User())
		return
	}

	user := claims.User()
	m.setAuthenticatedLocked(user, token, claims.Expiry())
	expiredNow := m.armTimerLocked()
	if expiredNow {
		m.clearLocked(ctx)
	}
	m.mu.Unlock()

	if expiredNow {
		m.log.Info().Str("user_id", user.ID).Msg("session restore: token expires now")
		m.nav.Navigate(LoginPath)
		m.publish(models.EventSessionExpired, user)
		return
	}

	m.log.Debug().Str("user_id", user.ID).Time("expires_at", claims.Expiry()).Msg("session restored")
}

func (m *Manager) failRestoreLocked(ctx context.Context) {
	if err := m.storage.Delete(ctx, m.key); err != nil {
		m.log.Error().Err(err).Msg("session restore: purge failed")
	}
	m.stopTimerLocked()
	m.state = State{}
	m.expiry = time.Time{}
}

// Login checks the credentials, issues a fresh token and makes it the only
// session of this origin. Failures are reported in the result, never as a
// panic or error.
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	m.mu.Lock()

	m.markInitializedLocked()
	if err := m.storage.Delete(ctx, m.key); err != nil {
		m.log.Warn().Err(err).Msg("login: purge of previous token failed")
	}

	user, ok := m.creds.Lookup(email, password)
	if !ok {
		m.mu.Unlock()
		m.log.Info().Err(ErrInvalidCredentials).Str("email", email).Msg("login rejected")
		return LoginResult{Success: false, Error: invalidCredentialsMessage, Err: ErrInvalidCredentials}
	}

	claims := NewClaims(user, m.clock.Now(), m.lifetime)
	token, err := m.codec.Encode(claims)
	if err != nil {
		m.mu.Unlock()
		m.log.Error().Err(err).Msg("login: token encode failed")
		return LoginResult{Success: false, Error: err.Error(), Err: err}
	}

	if err := m.storage.Set(ctx, m.key, token); err != nil {
		m.mu.Unlock()
		m.log.Error().Err(err).Msg("login: token persist failed")
		return LoginResult{Success: false, Error: err.Error(), Err: fmt.Errorf("%w: %w", ErrStorageUnavailable, err)}
	}

	m.setAuthenticatedLocked(user, token, claims.Expiry())
	expiredNow := m.armTimerLocked()
	if expiredNow {
		m.clearLocked(ctx)
	}
	m.mu.Unlock()

	if expiredNow {
		m.nav.Navigate(LoginPath)
		m.publish(models.EventSessionExpired, user)
		return LoginResult{Success: false, Error: ErrSessionExpired.Error(), Err: ErrSessionExpired}
	}

	m.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")
	m.nav.Navigate(LandingPath(user.Role))
	m.publish(models.EventSessionLogin, user)

	return LoginResult{Success: true, Role: user.Role}
}

// Logout purges storage, cancels the expiry timer and resets the state.
// Calling it while logged out only repeats the storage delete.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.markInitializedLocked()
	user, wasActive := m.currentUserLocked()
	m.clearLocked(ctx)
	m.mu.Unlock()

	m.nav.Navigate(LoginPath)
	if wasActive {
		m.log.Info().Str("user_id", user.ID).Msg("logout")
		m.publish(models.EventSessionLogout, user)
	}
}

// Close cancels the pending expiry timer without touching storage.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()
}

// markInitializedLocked ends the loading phase for a manager that is driven
// by Login or Logout before Initialize ran.
func (m *Manager) markInitializedLocked() {
	if m.initialized {
		return
	}
	m.initialized = true
	m.state = State{}
}

func (m *Manager) currentUserLocked() (models.User, bool) {
	if !m.state.IsAuthenticated || m.state.User == nil {
		return models.User{}, false
	}
	return *m.state.User, true
}

func (m *Manager) setAuthenticatedLocked(user models.User, token string, expiry time.Time) {
	u := user
	m.state = State{
		User:            &u,
		Token:           token,
		IsAuthenticated: true,
		Loading:         false,
	}
	m.expiry = expiry
}

func (m *Manager) clearLocked(ctx context.Context) {
	if err := m.storage.Delete(ctx, m.key); err != nil {
		m.log.Error().Err(err).Msg("session purge failed")
	}
	m.stopTimerLocked()
	m.state = State{}
	m.expiry = time.Time{}
}

// stopTimerLocked cancels the pending timer and invalidates any callback that
// is already running but has not yet acquired the lock.
func (m *Manager) stopTimerLocked() {
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// armTimerLocked replaces the expiry timer for the current token. It reports
// true when the token has no time left, in which case no timer is scheduled
// and the caller must end the session.
func (m *Manager) armTimerLocked() bool {
	m.stopTimerLocked()

	remaining := m.expiry.Sub(m.clock.Now())
	if remaining <= 0 {
		return true
	}

	gen := m.generation
	m.timer = m.clock.AfterFunc(remaining, func() {
		m.expire(gen)
	})
	return false
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || !m.state.IsAuthenticated {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	user, _ := m.currentUserLocked()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	m.clearLocked(ctx)
	m.mu.Unlock()

	m.log.Info().Str("user_id", user.ID).Msg("session expired")
	m.nav.Navigate(LoginPath)
	m.publish(models.EventSessionExpired, user)
}

func (m *Manager) publish(eventType models.EventType, user models.User) {
	if m.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	err := m.events.Publish(ctx, models.Event{
		Type:   eventType,
		Origin: m.origin,
		UserID: user.ID,
		Role:   user.Role,
		At:     m.clock.Now().UTC(),
	})
	if err != nil {
		m.log.Warn().Err(err).Str("event", string(eventType)).Msg("publish session event failed")
	}
}
