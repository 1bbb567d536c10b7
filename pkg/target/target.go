// Package target loads the list of applications to crawl.
package target

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Sternrassler/store-review-crawler/pkg/crawler"
	"github.com/rs/zerolog/log"
)

// Config keys, one list of apps per platform.
const (
	KeyAppStore  = "app_store"
	KeyPlayStore = "play_store"
)

// App identifies one crawl unit.
type App struct {
	AppID   string `json:"app_id"`
	Country string `json:"country"`

	// Pages is the starting page. Zero means the platform default.
	Pages uint32 `json:"pages"`
}

type fileConfig struct {
	AppStore  []App `json:"app_store"`
	PlayStore []App `json:"play_store"`
}

// Targets is the loaded configuration. It is written once by Load and
// read concurrently by the platform units afterwards.
type Targets struct {
	mu   sync.RWMutex
	apps map[string][]App
}

// Load reads and parses the target file at path. Any failure is a config
// load error.
func Load(path string) (*Targets, error) {
	logger := log.With().Str("component", "target").Str("path", path).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read target file")
		return nil, crawler.NewConfigLoadError("read "+path, err)
	}

	t, err := Parse(bytes.NewReader(data))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse target file")
		return nil, err
	}

	logger.Info().
		Int(KeyAppStore, len(t.Apps(KeyAppStore))).
		Int(KeyPlayStore, len(t.Apps(KeyPlayStore))).
		Msg("Loaded target apps")

	return t, nil
}

// Parse decodes a target configuration. Missing platform keys yield empty
// lists and unknown keys are ignored.
func Parse(r io.Reader) (*Targets, error) {
	var cfg fileConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, crawler.NewConfigLoadError("decode targets", err)
	}

	if err := validate(KeyAppStore, cfg.AppStore); err != nil {
		return nil, err
	}
	if err := validate(KeyPlayStore, cfg.PlayStore); err != nil {
		return nil, err
	}

	return New(cfg.AppStore, cfg.PlayStore), nil
}

// New builds Targets from already decoded lists.
func New(appStore, playStore []App) *Targets {
	return &Targets{
		apps: map[string][]App{
			KeyAppStore:  normalize(appStore),
			KeyPlayStore: normalize(playStore),
		},
	}
}

// Apps returns a snapshot of the apps configured under key, taken under a
// single read lock. Unknown keys return nil.
func (t *Targets) Apps(key string) []App {
	t.mu.RLock()
	defer t.mu.RUnlock()

	apps := t.apps[key]
	if apps == nil {
		return nil
	}
	snapshot := make([]App, len(apps))
	copy(snapshot, apps)
	return snapshot
}

func validate(key string, apps []App) error {
	for i, app := range apps {
		if strings.TrimSpace(app.AppID) == "" {
			return crawler.NewConfigLoadError(
				fmt.Sprintf("%s[%d]", key, i), fmt.Errorf("missing field app_id"))
		}
		if strings.TrimSpace(app.Country) == "" {
			return crawler.NewConfigLoadError(
				fmt.Sprintf("%s[%d]", key, i), fmt.Errorf("missing field country"))
		}
	}
	return nil
}

func normalize(apps []App) []App {
	out := make([]App, 0, len(apps))
	for _, app := range apps {
		app.AppID = strings.TrimSpace(app.AppID)
		app.Country = strings.TrimSpace(app.Country)
		out = append(out, app)
	}
	return out
}
