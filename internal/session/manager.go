package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karpella/ec2console/internal/auth"
)

// ErrSignedOut is returned by Credentials when no session is active.
var ErrSignedOut = errors.New("not signed in")

// refreshSkew is how long before token expiry a refresh is attempted,
// so that requests never go out with a token about to lapse mid-flight.
const refreshSkew = 60 * time.Second

type State int

const (
	StateSignedOut State = iota
	StateSignedIn
)

func (s State) String() string {
	if s == StateSignedIn {
		return "signed-in"
	}
	return "signed-out"
}

// Event is published on every session state transition, including
// refreshes that keep the signed-in state but change the expiry.
type Event struct {
	State    State
	Identity auth.Identity
	Err      error // set when the transition was forced by a failure
}

// Exchanger is the token-endpoint surface the manager drives.
type Exchanger interface {
	ExchangeAuthorizationCode(ctx context.Context, code string) (auth.Identity, *auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Identity, *auth.Session, error)
}

// Deriver turns a valid session's identity token into cloud credentials.
type Deriver interface {
	Derive(ctx context.Context, idToken string) (*auth.CloudCredentials, error)
}

// TokenStore persists sessions across runs. Implemented by *Store.
type TokenStore interface {
	Load() (*auth.Session, error)
	Save(*auth.Session) error
	Clear() error
}

// Manager owns the session lifecycle: sign-in, persistence, refresh
// ahead of expiry, credential derivation, and forced sign-out when the
// provider rejects us. All methods are safe for concurrent use.
type Manager struct {
	exchanger Exchanger
	deriver   Deriver
	store     TokenStore
	log       logrus.FieldLogger
	now       func() time.Time

	mu       sync.Mutex
	session  *auth.Session
	identity auth.Identity
	creds    *auth.CloudCredentials
	lastErr  error

	events chan Event
}

func NewManager(exchanger Exchanger, deriver Deriver, store TokenStore) *Manager {
	return &Manager{
		exchanger: exchanger,
		deriver:   deriver,
		store:     store,
		log:       logrus.StandardLogger().WithField("component", "session"),
		now:       time.Now,
		events:    make(chan Event, 16),
	}
}

// Events exposes state transitions for reactive consumers. The channel
// is buffered; events are dropped rather than blocking the manager when
// nobody is listening.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// SignIn redeems an authorization code, persists the session, and
// derives the first set of cloud credentials.
func (m *Manager) SignIn(ctx context.Context, code string) (auth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, sess, err := m.exchanger.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		m.lastErr = err
		return auth.Identity{}, err
	}
	if err := m.store.Save(sess); err != nil {
		m.lastErr = err
		return auth.Identity{}, err
	}
	m.session = sess
	m.identity = identity

	if err := m.deriveLocked(ctx); err != nil {
		m.forceSignOutLocked(err)
		return auth.Identity{}, err
	}

	m.lastErr = nil
	m.log.WithField("subject", identity.Subject).Info("signed in")
	m.emit(Event{State: StateSignedIn, Identity: identity})
	return identity, nil
}

// SignOut clears the persisted session and in-memory credentials.
// Signing out while signed out is a no-op.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		return err
	}
	wasSignedIn := m.session != nil
	m.session = nil
	m.identity = auth.Identity{}
	m.creds = nil
	m.lastErr = nil
	if wasSignedIn {
		m.log.Info("signed out")
		m.emit(Event{State: StateSignedOut})
	}
	return nil
}

// Resume restores a persisted session, refreshing it when it is near
// expiry. Returns false without error when no session is stored.
func (m *Manager) Resume(ctx context.Context) (auth.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.store.Load()
	if err != nil {
		return auth.Identity{}, false, err
	}
	if sess == nil {
		return auth.Identity{}, false, nil
	}

	identity, err := auth.DecodeIdentity(sess.IDToken)
	if err != nil {
		// A token we cannot decode is useless; drop it.
		_ = m.store.Clear()
		return auth.Identity{}, false, nil
	}
	m.session = sess
	m.identity = identity

	if _, err := m.credentialsLocked(ctx); err != nil {
		return auth.Identity{}, false, err
	}

	m.log.WithField("subject", m.identity.Subject).Debug("session resumed")
	m.emit(Event{State: StateSignedIn, Identity: m.identity})
	return m.identity, true, nil
}

// Credentials returns cloud credentials for the active session,
// refreshing the session and re-deriving as needed. A refresh or
// derivation failure forces the signed-out state before returning.
func (m *Manager) Credentials(ctx context.Context) (*auth.CloudCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credentialsLocked(ctx)
}

func (m *Manager) credentialsLocked(ctx context.Context) (*auth.CloudCredentials, error) {
	if m.session == nil {
		return nil, ErrSignedOut
	}

	if !m.session.Valid(m.now().Add(refreshSkew)) {
		identity, sess, err := m.exchanger.Refresh(ctx, m.session.RefreshToken)
		if err != nil {
			m.forceSignOutLocked(err)
			return nil, err
		}
		if err := m.store.Save(sess); err != nil {
			m.lastErr = err
			return nil, err
		}
		m.session = sess
		m.identity = identity
		m.creds = nil // derived from the old token, rebuild below
		m.log.WithField("expires_at", sess.ExpiresAt).Debug("session refreshed")
		m.emit(Event{State: StateSignedIn, Identity: identity})
	}

	if !m.creds.Usable(m.now()) {
		if err := m.deriveLocked(ctx); err != nil {
			m.forceSignOutLocked(err)
			return nil, err
		}
	}
	return m.creds, nil
}

func (m *Manager) deriveLocked(ctx context.Context) error {
	creds, err := m.deriver.Derive(ctx, m.session.IDToken)
	if err != nil {
		return err
	}
	m.creds = creds
	return nil
}

func (m *Manager) forceSignOutLocked(cause error) {
	if err := m.store.Clear(); err != nil {
		m.log.WithError(err).Warn("clearing session store after auth failure")
	}
	m.session = nil
	m.identity = auth.Identity{}
	m.creds = nil
	m.lastErr = cause
	m.log.WithError(cause).Warn("session invalidated")
	m.emit(Event{State: StateSignedOut, Err: cause})
}

// Identity reports the signed-in user, when there is one.
func (m *Manager) Identity() (auth.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.session != nil
}

// LastError returns the most recent auth failure. It is reset by the
// next successful sign-in or an explicit sign-out.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.log.WithField("state", ev.State).Debug("dropping session event, no listener")
	}
}
