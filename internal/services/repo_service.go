// internal/services/repo_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/makairamei/premium-server/internal/config"
	"github.com/makairamei/premium-server/internal/models"
)

// RepoService builds the gated repo manifest and proxies the upstream
// plugin list to admitted clients. The upstream body is cached for a short
// TTL so a burst of clients does not hammer the origin.
type RepoService struct {
	cfg      *config.Config
	settings *SettingsService
	client   *http.Client

	mu        sync.Mutex
	cached    json.RawMessage
	cachedAt  time.Time
	cacheTTL  time.Duration
	now       func() time.Time
}

// RepoManifest is the shape streaming clients expect from repo.json.
type RepoManifest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	ManifestVersion int      `json:"manifestVersion"`
	PluginLists     []string `json:"pluginLists"`
}

func NewRepoService(cfg *config.Config, settings *SettingsService) *RepoService {
	return &RepoService{
		cfg:      cfg,
		settings: settings,
		client: &http.Client{
			Timeout: time.Duration(cfg.Upstream.FetchTimeout) * time.Second,
		},
		cacheTTL: time.Duration(cfg.Upstream.CacheTTL) * time.Minute,
		now:      time.Now,
	}
}

// Manifest points the client at the key-scoped plugins URL.
func (s *RepoService) Manifest(key string) (*RepoManifest, error) {
	serverURL, err := s.settings.Get(models.SettingServerURL)
	if err != nil {
		return nil, err
	}
	if serverURL == "" {
		serverURL = s.cfg.Server.PublicURL
	}
	if serverURL == "" {
		serverURL = fmt.Sprintf("http://localhost:%s", s.cfg.Server.Port)
	}

	return &RepoManifest{
		Name:            "Premium Extensions",
		Description:     "CS Premium Extensions",
		ManifestVersion: 1,
		PluginLists:     []string{fmt.Sprintf("%s/r/%s/plugins.json", serverURL, key)},
	}, nil
}

// Plugins returns the upstream manifest body, from cache when fresh.
func (s *RepoService) Plugins(ctx context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.cacheTTL {
		body := s.cached
		s.mu.Unlock()
		return body, nil
	}
	s.mu.Unlock()

	upstream, err := s.settings.Get(models.SettingUpstreamPluginsURL)
	if err != nil {
		return nil, err
	}
	if upstream == "" {
		upstream = s.cfg.Upstream.PluginsURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream returned invalid JSON")
	}

	s.mu.Lock()
	s.cached = body
	s.cachedAt = s.now()
	s.mu.Unlock()

	return body, nil
}
