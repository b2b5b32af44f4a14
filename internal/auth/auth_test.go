package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarvis-nvidia/dm/internal/settings"
	"github.com/jarvis-nvidia/dm/internal/transport"
)

// fakeIdentity implements IdentityClient without a network.
type fakeIdentity struct {
	validKeys map[string]string // credential -> username
	exchanges map[string]string // code -> credential
}

func (f *fakeIdentity) WhoAmIWith(ctx context.Context, credential string) (*transport.Identity, error) {
	if name, ok := f.validKeys[credential]; ok {
		return &transport.Identity{Username: name, Scopes: []string{"repo"}}, nil
	}
	return nil, &transport.AuthError{Message: "credential rejected by service"}
}

func (f *fakeIdentity) ExchangeCode(ctx context.Context, code string) (string, error) {
	if cred, ok := f.exchanges[code]; ok {
		return cred, nil
	}
	return "", &transport.AuthError{Message: "unknown code"}
}

func (f *fakeIdentity) AuthorizeURL(state, redirect string) string {
	return "http://service.test/authorize?state=" + state + "&redirect_uri=" + url.QueryEscape(redirect)
}

func newTestManager(t *testing.T, client IdentityClient) (*Manager, *settings.Store) {
	t.Helper()
	store, err := settings.Load(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	m := New(store, client)
	m.DelegatedTimeout = 2 * time.Second
	return m, store
}

func TestCredentialAuthPersistsOnlyValidCredentials(t *testing.T) {
	client := &fakeIdentity{validKeys: map[string]string{"good-key": "octocat"}}
	m, store := newTestManager(t, client)

	// Invalid credential: rejected, nothing persisted.
	err := m.StartCredentialAuth(context.Background(), "bad-key")
	var authErr *transport.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if m.Authenticated() {
		t.Error("authenticated after rejected credential")
	}
	if store.Get().Credential != "" {
		t.Error("rejected credential was persisted")
	}

	// Valid credential: validated, then persisted.
	if err := m.StartCredentialAuth(context.Background(), "good-key"); err != nil {
		t.Fatalf("StartCredentialAuth: %v", err)
	}
	s := m.Session()
	if s.State != Authenticated || s.Principal != "octocat" || s.Method != MethodCredential {
		t.Errorf("session = %+v", s)
	}
	if store.Get().Credential != "good-key" {
		t.Error("valid credential not persisted")
	}
}

func TestCredentialAuthRejectsEmpty(t *testing.T) {
	m, _ := newTestManager(t, &fakeIdentity{})
	var authErr *transport.AuthError
	if err := m.StartCredentialAuth(context.Background(), ""); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	client := &fakeIdentity{validKeys: map[string]string{"stored-key": "octocat"}}
	m, store := newTestManager(t, client)

	// Nothing stored: stays unauthenticated, no error.
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore with no credential: %v", err)
	}
	if m.Authenticated() {
		t.Error("authenticated with no stored credential")
	}

	// Stored valid credential: restores the session.
	if err := store.Update(func(v *settings.Settings) { v.Credential = "stored-key" }); err != nil {
		t.Fatal(err)
	}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !m.Authenticated() {
		t.Error("not authenticated after restoring a valid credential")
	}
}

func TestRestoreFailureKeepsStoredCredential(t *testing.T) {
	m, store := newTestManager(t, &fakeIdentity{}) // rejects everything
	if err := store.Update(func(v *settings.Settings) { v.Credential = "stale-key" }); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(context.Background()); err == nil {
		t.Fatal("expected error restoring a rejected credential")
	}
	if m.Authenticated() {
		t.Error("authenticated after failed restore")
	}
	// The service may just be unreachable; the credential stays.
	if store.Get().Credential != "stale-key" {
		t.Error("stored credential cleared by failed restore")
	}
}

// delegatedCallback drives the local callback endpoint the way the external
// flow would, using the state the manager put in the authorization URL.
func delegatedCallback(t *testing.T, m *Manager, mutateState func(string) string, code string) {
	t.Helper()
	openedURL := make(chan string, 1)
	m.OpenURL = func(u string) error {
		openedURL <- u
		return nil
	}
	go func() {
		var authURL string
		select {
		case authURL = <-openedURL:
		case <-time.After(2 * time.Second):
			return
		}
		u, err := url.Parse(authURL)
		if err != nil {
			return
		}
		state := u.Query().Get("state")
		redirect := u.Query().Get("redirect_uri")
		resp, err := http.Get(redirect + "?code=" + code + "&state=" + mutateState(state))
		if err == nil {
			resp.Body.Close()
		}
	}()
}

func TestDelegatedAuthSuccess(t *testing.T) {
	client := &fakeIdentity{
		validKeys: map[string]string{"exchanged-key": "octocat"},
		exchanges: map[string]string{"code-1": "exchanged-key"},
	}
	m, store := newTestManager(t, client)
	delegatedCallback(t, m, func(s string) string { return s }, "code-1")

	if err := m.StartDelegatedAuth(context.Background()); err != nil {
		t.Fatalf("StartDelegatedAuth: %v", err)
	}
	s := m.Session()
	if s.State != Authenticated || s.Method != MethodDelegated || s.Principal != "octocat" {
		t.Errorf("session = %+v", s)
	}
	if store.Get().Credential != "exchanged-key" {
		t.Error("exchanged credential not persisted")
	}
}

func TestDelegatedAuthStateMismatchAborts(t *testing.T) {
	client := &fakeIdentity{exchanges: map[string]string{"code-1": "k"}}
	m, store := newTestManager(t, client)
	delegatedCallback(t, m, func(string) string { return "forged-state" }, "code-1")

	err := m.StartDelegatedAuth(context.Background())
	var authErr *transport.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for state mismatch, got %v", err)
	}
	if m.Session().State != Unauthenticated {
		t.Errorf("state = %v after mismatch, want Unauthenticated", m.Session().State)
	}
	if store.Get().Credential != "" {
		t.Error("credential persisted despite state mismatch")
	}
}

func TestDelegatedAuthTimeout(t *testing.T) {
	m, _ := newTestManager(t, &fakeIdentity{})
	m.DelegatedTimeout = 50 * time.Millisecond
	m.OpenURL = func(string) error { return nil } // never calls back

	err := m.StartDelegatedAuth(context.Background())
	var authErr *transport.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError on timeout, got %v", err)
	}
	if m.Session().State != Unauthenticated {
		t.Errorf("state = %v after timeout, want Unauthenticated", m.Session().State)
	}
}

func TestStartAuthRejectedWhileAuthenticated(t *testing.T) {
	client := &fakeIdentity{validKeys: map[string]string{"key": "octocat"}}
	m, store := newTestManager(t, client)
	if err := m.StartCredentialAuth(context.Background(), "key"); err != nil {
		t.Fatal(err)
	}

	var states []State
	m.OnChange(func(s Session) { states = append(states, s.State) })

	// Switching methods requires signing out first; neither flow may leave
	// an established session.
	var authErr *transport.AuthError
	if err := m.StartCredentialAuth(context.Background(), "key"); !errors.As(err, &authErr) {
		t.Fatalf("StartCredentialAuth while signed in: got %v, want AuthError", err)
	}
	m.OpenURL = func(string) error {
		t.Error("authorization URL opened while signed in")
		return nil
	}
	if err := m.StartDelegatedAuth(context.Background()); !errors.As(err, &authErr) {
		t.Fatalf("StartDelegatedAuth while signed in: got %v, want AuthError", err)
	}

	if len(states) != 0 {
		t.Errorf("observed transitions %v, want none", states)
	}
	if !m.Authenticated() {
		t.Error("established session lost")
	}
	if store.Get().Credential != "key" {
		t.Error("persisted credential disturbed")
	}
}

func TestSignOut(t *testing.T) {
	client := &fakeIdentity{validKeys: map[string]string{"key": "octocat"}}
	m, store := newTestManager(t, client)
	if err := m.StartCredentialAuth(context.Background(), "key"); err != nil {
		t.Fatal(err)
	}

	// A declined confirmation keeps the session.
	if err := m.SignOut(func() bool { return false }); err != nil {
		t.Fatal(err)
	}
	if !m.Authenticated() {
		t.Error("signed out despite declined confirmation")
	}

	if err := m.SignOut(func() bool { return true }); err != nil {
		t.Fatal(err)
	}
	if m.Authenticated() {
		t.Error("still authenticated after sign-out")
	}
	if store.Get().Credential != "" {
		t.Error("credential survived sign-out")
	}

	// Already signed out: a second SignOut is a no-op and asks nothing.
	if err := m.SignOut(func() bool {
		t.Error("confirmation requested while unauthenticated")
		return true
	}); err != nil {
		t.Fatal(err)
	}
}

func TestHandleUnauthorizedForcesSignOut(t *testing.T) {
	client := &fakeIdentity{validKeys: map[string]string{"key": "octocat"}}
	m, store := newTestManager(t, client)
	if err := m.StartCredentialAuth(context.Background(), "key"); err != nil {
		t.Fatal(err)
	}

	m.HandleUnauthorized()
	if m.Authenticated() {
		t.Error("still authenticated after 401 hook")
	}
	if store.Get().Credential != "" {
		t.Error("credential survived 401 hook")
	}
}

func TestOnChangeObservesTransitions(t *testing.T) {
	client := &fakeIdentity{validKeys: map[string]string{"key": "octocat"}}
	m, _ := newTestManager(t, client)

	var states []State
	unsubscribe := m.OnChange(func(s Session) { states = append(states, s.State) })

	if err := m.StartCredentialAuth(context.Background(), "key"); err != nil {
		t.Fatal(err)
	}
	if err := m.SignOut(nil); err != nil {
		t.Fatal(err)
	}

	want := []State{Authenticated, Unauthenticated}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, states[i], want[i])
		}
	}

	unsubscribe()
	if err := m.StartCredentialAuth(context.Background(), "key"); err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Error("unsubscribed observer still notified")
	}
}
