// Package auth owns the authentication session for the process. It drives
// the credential and delegated sign-in flows, persists the credential
// through the settings store, and notifies subscribers on every transition.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jarvis-nvidia/dm/internal/settings"
	"github.com/jarvis-nvidia/dm/internal/transport"
)

// State is the authentication state.
type State int

const (
	Unauthenticated State = iota
	PendingExternalAuth
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case PendingExternalAuth:
		return "pending external auth"
	default:
		return "unauthenticated"
	}
}

// Method records how the current session was established.
type Method int

const (
	MethodNone Method = iota
	MethodCredential
	MethodDelegated
)

func (m Method) String() string {
	switch m {
	case MethodCredential:
		return "credential"
	case MethodDelegated:
		return "delegated"
	default:
		return "none"
	}
}

// Session is a snapshot of the authentication state.
type Session struct {
	State     State
	Principal string
	AvatarURL string
	Method    Method
	Scopes    []string
}

// IdentityClient is the slice of the transport client the auth machine
// needs.
type IdentityClient interface {
	WhoAmIWith(ctx context.Context, credential string) (*transport.Identity, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
	AuthorizeURL(state, redirect string) string
}

// DefaultDelegatedTimeout bounds the wait for the external authorization
// callback.
const DefaultDelegatedTimeout = 3 * time.Minute

// Manager is the process-wide authentication state machine. All transitions
// go through its public methods; subscribers observe every transition
// synchronously.
type Manager struct {
	store  *settings.Store
	client IdentityClient

	// OpenURL launches the external authorization URL. Defaults to the
	// system browser; tests replace it.
	OpenURL func(url string) error

	// DelegatedTimeout bounds the callback wait.
	DelegatedTimeout time.Duration

	// CallbackAddr is the listen address for the delegated-auth callback
	// server. Defaults to a random localhost port.
	CallbackAddr string

	mu           sync.Mutex
	session      Session
	pendingToken string
	subs         map[int]func(Session)
	nextSub      int
}

// New creates a Manager in the Unauthenticated state.
func New(store *settings.Store, client IdentityClient) *Manager {
	return &Manager{
		store:            store,
		client:           client,
		OpenURL:          OpenBrowser,
		DelegatedTimeout: DefaultDelegatedTimeout,
		CallbackAddr:     "127.0.0.1:0",
		subs:             make(map[int]func(Session)),
	}
}

// Session returns the current session snapshot.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Authenticated reports whether the session is established.
func (m *Manager) Authenticated() bool {
	return m.Session().State == Authenticated
}

// OnChange registers fn to run on every state transition. The status
// indicator subscribes here; notification is synchronous with the
// transition.
func (m *Manager) OnChange(fn func(Session)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Restore validates a previously persisted credential at process start. A
// validation failure leaves the session Unauthenticated without clearing the
// stored credential: the service may simply be unreachable.
func (m *Manager) Restore(ctx context.Context) error {
	cred := m.store.Get().Credential
	if cred == "" {
		return nil
	}
	id, err := m.client.WhoAmIWith(ctx, cred)
	if err != nil {
		return err
	}
	m.transition(Session{
		State:     Authenticated,
		Principal: id.Username,
		AvatarURL: id.AvatarURL,
		Method:    MethodCredential,
		Scopes:    id.Scopes,
	})
	return nil
}

// StartCredentialAuth validates the given credential against the identity
// endpoint and, only on success, persists it and transitions to
// Authenticated. On failure the credential is discarded. An established
// session must be signed out before switching credentials.
func (m *Manager) StartCredentialAuth(ctx context.Context, credential string) error {
	if m.Session().State == Authenticated {
		return &transport.AuthError{Message: "already signed in; sign out first"}
	}
	if credential == "" {
		return &transport.AuthError{Message: "credential must not be empty"}
	}
	id, err := m.client.WhoAmIWith(ctx, credential)
	if err != nil {
		return err
	}
	if err := m.persistCredential(credential); err != nil {
		return err
	}
	m.transition(Session{
		State:     Authenticated,
		Principal: id.Username,
		AvatarURL: id.AvatarURL,
		Method:    MethodCredential,
		Scopes:    id.Scopes,
	})
	return nil
}

// StartDelegatedAuth runs the external authorization flow: it generates a
// single-use correlation token, opens the authorization URL, and waits for
// the callback. A token mismatch or timeout aborts back to Unauthenticated.
// An established session must be signed out before starting a new flow.
func (m *Manager) StartDelegatedAuth(ctx context.Context) error {
	token := uuid.NewString()

	m.mu.Lock()
	switch m.session.State {
	case PendingExternalAuth:
		m.mu.Unlock()
		return &transport.AuthError{Message: "a sign-in is already in progress"}
	case Authenticated:
		m.mu.Unlock()
		return &transport.AuthError{Message: "already signed in; sign out first"}
	}
	m.pendingToken = token
	m.mu.Unlock()
	m.transition(Session{State: PendingExternalAuth})

	srv, err := newCallbackServer(m.CallbackAddr)
	if err != nil {
		m.abortDelegated()
		return fmt.Errorf("starting auth callback listener: %w", err)
	}
	defer srv.Close()

	if err := m.OpenURL(m.client.AuthorizeURL(token, srv.RedirectURL())); err != nil {
		m.abortDelegated()
		return fmt.Errorf("opening authorization URL: %w", err)
	}

	var cb callback
	select {
	case cb = <-srv.Done():
	case <-time.After(m.DelegatedTimeout):
		m.abortDelegated()
		return &transport.AuthError{Message: "timed out waiting for authorization callback"}
	case <-ctx.Done():
		m.abortDelegated()
		return ctx.Err()
	}

	// Exact-match correlation check. A mismatch means the callback does
	// not belong to this request.
	if cb.State != token {
		m.abortDelegated()
		return &transport.AuthError{Message: "authorization state mismatch; sign-in aborted"}
	}
	if cb.Code == "" {
		m.abortDelegated()
		return &transport.AuthError{Message: "authorization callback carried no code"}
	}

	credential, err := m.client.ExchangeCode(ctx, cb.Code)
	if err != nil {
		m.abortDelegated()
		return err
	}
	id, err := m.client.WhoAmIWith(ctx, credential)
	if err != nil {
		m.abortDelegated()
		return err
	}
	if err := m.persistCredential(credential); err != nil {
		m.abortDelegated()
		return err
	}

	m.mu.Lock()
	m.pendingToken = ""
	m.mu.Unlock()
	m.transition(Session{
		State:     Authenticated,
		Principal: id.Username,
		AvatarURL: id.AvatarURL,
		Method:    MethodDelegated,
		Scopes:    id.Scopes,
	})
	return nil
}

// SignOut clears the credential and returns to Unauthenticated. When
// confirm is non-nil it must approve the sign-out first. Signing out while
// already Unauthenticated is a no-op.
func (m *Manager) SignOut(confirm func() bool) error {
	if m.Session().State == Unauthenticated {
		return nil
	}
	if confirm != nil && !confirm() {
		return nil
	}
	return m.forceSignOut()
}

// HandleUnauthorized is the transport client's 401 hook: the service
// rejected the stored credential, so the session is invalidated without
// confirmation.
func (m *Manager) HandleUnauthorized() {
	if m.Session().State == Unauthenticated {
		return
	}
	_ = m.forceSignOut()
}

func (m *Manager) forceSignOut() error {
	if err := m.store.Update(func(s *settings.Settings) { s.Credential = "" }); err != nil {
		return err
	}
	m.mu.Lock()
	m.pendingToken = ""
	m.mu.Unlock()
	m.transition(Session{State: Unauthenticated})
	return nil
}

func (m *Manager) abortDelegated() {
	m.mu.Lock()
	m.pendingToken = ""
	m.mu.Unlock()
	m.transition(Session{State: Unauthenticated})
}

func (m *Manager) persistCredential(credential string) error {
	return m.store.Update(func(s *settings.Settings) { s.Credential = credential })
}

func (m *Manager) transition(next Session) {
	m.mu.Lock()
	m.session = next
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
}
