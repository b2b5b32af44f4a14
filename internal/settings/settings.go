// Package settings holds the persisted configuration for dm and fans out
// change notifications to the components that read it.
package settings

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the full configuration shape. Fields left unset in the
// persisted document fall back to the documented defaults on load.
type Settings struct {
	EndpointURL      string         `json:"endpoint_url"`
	Credential       string         `json:"credential,omitempty"`
	Debug            DebugSettings  `json:"debug"`
	Review           ReviewSettings `json:"review"`
	Commit           CommitSettings `json:"commit"`
	TelemetryEnabled bool           `json:"telemetry_enabled"`
}

type DebugSettings struct {
	AutoSuggest bool   `json:"auto_suggest"`
	MinSeverity string `json:"min_severity"`
}

type ReviewSettings struct {
	AutoReview bool     `json:"auto_review"`
	Categories []string `json:"categories"`
}

type CommitSettings struct {
	Template string `json:"template"`
}

// Defaults returns the settings used when no document exists yet.
func Defaults() Settings {
	return Settings{
		EndpointURL:      "http://localhost:8000",
		Debug:            DebugSettings{AutoSuggest: true, MinSeverity: "info"},
		Review:           ReviewSettings{Categories: []string{"general", "performance", "security"}},
		Commit:           CommitSettings{Template: ""},
		TelemetryEnabled: true,
	}
}

// Store persists Settings to a flat JSON document and notifies subscribers
// synchronously after every successful update.
type Store struct {
	path string

	mu      sync.Mutex
	current Settings
	subs    map[int]func(Settings)
	nextSub int
}

// DefaultPath returns the settings file location under the XDG config dir.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "dm", "settings.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "dm-settings.json"
	}
	return filepath.Join(home, ".config", "dm", "settings.json")
}

// Load reads the settings document at path, merging over defaults. A missing
// file is not an error; it yields the defaults.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		current: Defaults(),
		subs:    make(map[int]func(Settings)),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	// Unmarshal into a copy of the defaults so unset keys keep their
	// default values.
	merged := Defaults()
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	if err := validate(merged); err != nil {
		return nil, err
	}
	s.current = merged
	return s, nil
}

// Get returns the last-saved settings merged with defaults.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies mutate to a copy of the current settings, persists the
// result, and synchronously notifies subscribers. The in-memory state is
// unchanged if validation or persistence fails.
func (s *Store) Update(mutate func(*Settings)) error {
	s.mu.Lock()
	next := s.current
	mutate(&next)
	if err := validate(next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	subs := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// OnChange registers fn to be called after every successful update. The
// returned function removes the subscription.
func (s *Store) OnChange(fn func(Settings)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) persist(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func validate(v Settings) error {
	u, err := url.Parse(v.EndpointURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("endpoint URL %q is not a valid absolute URL", v.EndpointURL)
	}
	return nil
}
