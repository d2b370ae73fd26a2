package validation

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Mode is how a blocking document is served.
type Mode string

const (
	// ModeCanonical has no fallback: the document is served degraded.
	ModeCanonical Mode = "canonical"
	// ModePaired redirects to the non-AMP rendering.
	ModePaired Mode = "paired"
)

// Query vars of the trigger protocol.
const (
	QueryValidate       = "amp_validate"
	QueryDebug          = "amp_debug"
	QueryPreserve       = "amp_preserve_source_comments"
	QueryCacheBust      = "amp_cache_bust"
	QueryErrorCount     = "amp_validation_errors"
	QueryAMP            = "amp"
	ampEndpoint         = "amp"
	developmentFragment = "development=1"
)

// internalQueryVars never reach the canonical or redirect URLs.
var internalQueryVars = []string{
	"__amp_source_origin",
	"_wp_amp_action_xhr_converted",
	"amp_latest_update_time",
	"amp_last_check_time",
}

// Options configure one run.
type Options struct {
	LocateSources          bool   `json:"locate_sources,omitempty"`
	Debug                  bool   `json:"debug,omitempty"`
	Validate               bool   `json:"validate,omitempty"`
	PreserveSourceComments bool   `json:"preserve_source_comments,omitempty"`
	Mode                   Mode   `json:"mode,omitempty"`
	CurrentURL             string `json:"current_url,omitempty"`
	CanReview              bool   `json:"can_review,omitempty"`
	ContentType            string `json:"content_type,omitempty"`
}

// Trigger derives run options from the request. Validation, debug and
// source comments require authorized; the second result reports whether
// this is a validation run.
func Trigger(r *http.Request, authorized bool) (Options, bool) {
	q := r.URL.Query()
	u := *r.URL
	PurgeQueryVars(&u)
	opts := Options{Mode: ModeCanonical, CurrentURL: u.String(), CanReview: authorized}
	if !authorized || !q.Has(QueryValidate) {
		return opts, false
	}
	opts.Validate = true
	opts.LocateSources = true
	opts.Debug = q.Has(QueryDebug)
	opts.PreserveSourceComments = q.Has(QueryPreserve)
	return opts, true
}

// PurgeQueryVars removes internal and trigger query vars from u.
func PurgeQueryVars(u *url.URL) {
	q := u.Query()
	changed := false
	for _, k := range append(append([]string(nil), internalQueryVars...), QueryValidate, QueryDebug, QueryPreserve, QueryCacheBust) {
		if q.Has(k) {
			q.Del(k)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
}

// NonAMPURL strips the amp endpoint and query var from raw.
func NonAMPURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	PurgeQueryVars(u)
	q := u.Query()
	if q.Has(QueryAMP) {
		q.Del(QueryAMP)
		u.RawQuery = q.Encode()
	}
	path := strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(path, "/"+ampEndpoint) {
		u.Path = strings.TrimSuffix(path, ampEndpoint)
		u.RawPath = ""
	}
	return u.String(), nil
}

// RedirectURL is the paired-mode fallback. The error count is exposed only
// to reviewers.
func RedirectURL(current string, blocking int, canReview bool) (string, error) {
	target, err := NonAMPURL(current)
	if err != nil {
		return "", err
	}
	if !canReview {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(QueryErrorCount, strconv.Itoa(blocking))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DebugURL points the runtime at its development mode.
func DebugURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Fragment = developmentFragment
	return u.String(), nil
}

// ValidationURL requests a validation run of raw that bypasses caches.
func ValidationURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(QueryValidate, "1")
	q.Set(QueryCacheBust, uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String(), nil
}
