// Package transport wraps outbound calls to the DevMind inference service.
// It attaches the stored credential, enforces a request timeout, and
// normalizes every failure into the TransportError/AuthError taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jarvis-nvidia/dm/internal/model"
	"github.com/jarvis-nvidia/dm/internal/settings"
)

// DefaultTimeout bounds a single inference call. There is no retry; the
// caller surfaces the failure and the user re-invokes.
const DefaultTimeout = 60 * time.Second

// Client talks to the inference service. Endpoint and credential are read
// from the settings store on every call, so a sign-in or settings change
// takes effect without reconstructing the client.
type Client struct {
	store *settings.Store
	http  *http.Client

	// onUnauthorized is invoked when the service rejects the credential,
	// before the AuthError is returned. The auth machine hooks its
	// sign-out path here.
	onUnauthorized func()
}

// New creates a Client reading endpoint and credential from store.
func New(store *settings.Store) *Client {
	return &Client{
		store: store,
		http:  &http.Client{Timeout: DefaultTimeout},
	}
}

// OnUnauthorized registers fn to run whenever a request fails with a
// credential rejection.
func (c *Client) OnUnauthorized(fn func()) { c.onUnauthorized = fn }

type debugRequest struct {
	ProblemDescription string `json:"problem_description"`
	CodeSnippet        string `json:"code_snippet,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	Repository         string `json:"repository,omitempty"`
	FilePath           string `json:"file_path,omitempty"`
	Language           string `json:"language,omitempty"`
}

type reviewRequest struct {
	CodeDiff      string   `json:"code_diff,omitempty"`
	FilePath      string   `json:"file_path,omitempty"`
	Repository    string   `json:"repository,omitempty"`
	PRTitle       string   `json:"pr_title,omitempty"`
	PRDescription string   `json:"pr_description,omitempty"`
	Language      string   `json:"language,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

type storytellerRequest struct {
	CodeDiff    string   `json:"code_diff"`
	FilePaths   []string `json:"file_paths,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	MessageType string   `json:"message_type"`
}

// envelope is the common response wrapper of every service operation.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Debug runs the debug operation for the given context.
func (c *Client) Debug(ctx context.Context, cc model.CommandContext, problem string) (*model.DebugResult, error) {
	req := debugRequest{
		ProblemDescription: problem,
		CodeSnippet:        cc.Code,
		Repository:         cc.RepositoryID,
		FilePath:           cc.FilePath,
		Language:           cc.Language,
	}
	var data struct {
		Analysis    string `json:"analysis"`
		ContextUsed bool   `json:"context_used"`
	}
	if err := c.post(ctx, "debug", "/api/v1/debug", req, &data); err != nil {
		return nil, err
	}
	return model.ParseDebugPayload(data.Analysis, data.ContextUsed), nil
}

// Review runs the review operation for the given context.
func (c *Client) Review(ctx context.Context, cc model.CommandContext) (*model.ReviewResult, error) {
	req := reviewRequest{
		CodeDiff:      cc.DiffText,
		FilePath:      cc.FilePath,
		Repository:    cc.RepositoryID,
		PRTitle:       cc.PRTitle,
		PRDescription: cc.PRDescription,
		Language:      cc.Language,
		Categories:    cc.Categories,
	}
	var data struct {
		Review      string `json:"review"`
		ContextUsed bool   `json:"context_used"`
	}
	if err := c.post(ctx, "review", "/api/v1/review", req, &data); err != nil {
		return nil, err
	}
	return model.ParseReviewPayload(data.Review, data.ContextUsed), nil
}

// GenerateCommitMessage runs the storyteller operation with
// message_type=commit.
func (c *Client) GenerateCommitMessage(ctx context.Context, cc model.CommandContext) (*model.CommitResult, error) {
	req := storytellerRequest{
		CodeDiff:    cc.DiffText,
		FilePaths:   cc.FilePaths,
		Repository:  cc.RepositoryID,
		MessageType: "commit",
	}
	// Older service builds key the generated text "content" instead of
	// "message"; accept both.
	var data struct {
		Message     string `json:"message"`
		Content     string `json:"content"`
		ContextUsed bool   `json:"context_used"`
	}
	if err := c.post(ctx, "storyteller", "/api/v1/storyteller", req, &data); err != nil {
		return nil, err
	}
	msg := data.Message
	if msg == "" {
		msg = data.Content
	}
	if strings.TrimSpace(msg) == "" {
		return nil, &TransportError{Op: "storyteller", Message: "service returned an empty commit message"}
	}
	return &model.CommitResult{Message: strings.TrimSpace(msg), ContextUsed: data.ContextUsed}, nil
}

// Identity describes the principal the current credential belongs to.
type Identity struct {
	Username  string   `json:"username"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

// WhoAmI validates the stored credential by querying the identity endpoint.
func (c *Client) WhoAmI(ctx context.Context) (*Identity, error) {
	return c.WhoAmIWith(ctx, c.store.Get().Credential)
}

// WhoAmIWith validates an explicit credential without persisting it. The
// auth machine uses it so an invalid credential never reaches the settings
// document.
func (c *Client) WhoAmIWith(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, &AuthError{Message: "no credential configured"}
	}
	base := strings.TrimRight(c.store.Get().EndpointURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/auth/me", nil)
	if err != nil {
		return nil, &TransportError{Op: "auth", Err: err}
	}
	req.Header.Set("X-API-Key", credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "auth", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Message: "credential rejected by service"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "auth", Status: resp.StatusCode, Message: snippet(respBody)}
	}

	var id Identity
	if err := json.Unmarshal(respBody, &id); err != nil {
		return nil, &TransportError{Op: "auth", Err: fmt.Errorf("parsing identity: %w", err)}
	}
	if id.Username == "" {
		return nil, &AuthError{Message: "identity query returned no principal"}
	}
	return &id, nil
}

// ExchangeCode exchanges a delegated-auth authorization code for an API
// credential.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	req := map[string]string{"code": code}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.post(ctx, "auth", "/api/v1/auth/github/exchange", req, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", &AuthError{Message: "code exchange returned no credential"}
	}
	return data.AccessToken, nil
}

// AuthorizeURL returns the external authorization URL for the delegated
// sign-in flow, binding the given correlation state and redirect.
func (c *Client) AuthorizeURL(state, redirect string) string {
	base := strings.TrimRight(c.store.Get().EndpointURL, "/")
	return fmt.Sprintf("%s/api/v1/auth/github/login?state=%s&redirect_uri=%s", base, state, redirect)
}

// Health checks service reachability. It requires no credential.
func (c *Client) Health(ctx context.Context) error {
	base := strings.TrimRight(c.store.Get().EndpointURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "health", Status: resp.StatusCode, Message: "service unhealthy"}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return c.do(ctx, op, http.MethodPost, path, bytes.NewReader(raw), out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	cfg := c.store.Get()
	base := strings.TrimRight(cfg.EndpointURL, "/")

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Credential != "" {
		req.Header.Set("X-API-Key", cfg.Credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &AuthError{Message: fmt.Sprintf("%s: credential rejected by service (%d)", op, resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: snippet(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		// Identity and exchange endpoints reply with a bare object.
		if out != nil {
			if err2 := json.Unmarshal(respBody, out); err2 == nil {
				return nil
			}
		}
		return &TransportError{Op: op, Err: fmt.Errorf("parsing response: %w", err)}
	}
	if env.Data == nil && out != nil {
		// Bare object without the {success, data} wrapper.
		if err := json.Unmarshal(respBody, out); err == nil {
			return nil
		}
	}
	if !env.Success && len(env.Data) == 0 && env.Message != "" {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("parsing response data: %w", err)}
		}
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
