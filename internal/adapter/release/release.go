package release

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunneltap/internal/domain"
)

const defaultFeedURL = "https://update.code.visualstudio.com/api/releases/stable"

// Resolver queries the stable-channel release feed for the newest version.
type Resolver struct {
	client  *http.Client
	feedURL string
	log     domain.Logger
}

// NewResolver creates a Resolver against the default stable feed.
func NewResolver(log domain.Logger) *Resolver {
	return &Resolver{
		client:  &http.Client{Timeout: 15 * time.Second},
		feedURL: defaultFeedURL,
		log:     log,
	}
}

// NewResolverURL creates a Resolver against an explicit feed URL.
func NewResolverURL(feedURL string, log domain.Logger) *Resolver {
	r := NewResolver(log)
	r.feedURL = feedURL
	return r
}

// LatestStable returns the newest stable version string, or "" when it
// cannot be determined. A single attempt is made; every failure mode is
// logged and collapsed into the empty string for the caller to act on.
func (r *Resolver) LatestStable() string {
	resp, err := r.client.Get(r.feedURL)
	if err != nil {
		r.log.Debug("release feed request failed", "url", r.feedURL, "err", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Debug("release feed returned non-OK status", "url", r.feedURL, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.log.Debug("release feed read failed", "err", err)
		return ""
	}
	return parseVersion(body)
}

// parseVersion extracts a version string from a releases payload. JSON
// sequences yield their first element, objects are read directly, and a
// body that is not JSON at all is taken as the version verbatim (trimmed).
func parseVersion(body []byte) string {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	if seq, ok := payload.([]any); ok {
		if len(seq) == 0 {
			return ""
		}
		return versionField(seq[0])
	}
	return versionField(payload)
}

// versionField prefers "version", then "name", then the value's string form.
func versionField(v any) string {
	if m, ok := v.(map[string]any); ok {
		if s, ok := m["version"].(string); ok && s != "" {
			return s
		}
		if s, ok := m["name"].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
