// Package respcache memoizes finished responses by a hash of everything that
// shaped them. A hit is served only while every cached decision still
// matches current policy.
package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// DefaultTTL is how long an entry is served.
const DefaultTTL = 30 * 24 * time.Hour

// KeyParts is the full transformation input.
type KeyParts struct {
	Config    any      `json:"config"`
	Args      any      `json:"args,omitempty"`
	Allowlist string   `json:"allowlist,omitempty"`
	Raw       string   `json:"raw"`
	Stages    []string `json:"stages"`
	Embeds    any      `json:"embeds,omitempty"`
	Version   string   `json:"version"`
}

// Key hashes p. Bumping Version invalidates every entry.
func Key(p KeyParts) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Snapshot is a cached decision; sources are not kept.
type Snapshot struct {
	Error     taxonomy.Error `json:"error"`
	Sanitized bool           `json:"sanitized"`
}

// Snapshots strips results down to what a recheck needs.
func Snapshots(results []taxonomy.Result) []Snapshot {
	out := make([]Snapshot, len(results))
	for i, r := range results {
		out[i] = Snapshot{Error: r.Error.WithoutSources(), Sanitized: r.Sanitized}
	}
	return out
}

// Entry is an immutable cached response.
type Entry struct {
	Body      string          `json:"body"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Results   []Snapshot      `json:"results"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether e may no longer be served at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Enabled reports whether caching applies: never for debug or traced runs.
func Enabled(debug, locateSources, configured bool) bool {
	return configured && !debug && !locateSources
}
