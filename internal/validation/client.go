package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

var (
	// ErrFetch wraps transport failures.
	ErrFetch = errors.New("validation fetch failed")
	// ErrCommentAbsent means the response carried no error summary.
	ErrCommentAbsent = errors.New("validation error summary absent")
	// ErrMalformedJSON means the summary did not decode.
	ErrMalformedJSON = errors.New("validation error summary is not valid JSON")
)

// StatusError is a response with a status of 400 or more.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("validation fetch %s: status %d", e.URL, e.Code)
}

var summaryRe = regexp.MustCompile(`(?s)</body>.*?<!--\s*AMP_VALIDATION_ERRORS\s*:\s*(\[.*?\])\s*-->`)

// ExtractErrors reads the error summary trailing a rendered document.
func ExtractErrors(body string) ([]taxonomy.Result, error) {
	m := summaryRe.FindStringSubmatch(body)
	if m == nil {
		return nil, ErrCommentAbsent
	}
	var entries []summaryEntry
	if err := json.Unmarshal([]byte(m[1]), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	out := make([]taxonomy.Result, len(entries))
	for i, e := range entries {
		out[i] = taxonomy.Result(e)
	}
	return out, nil
}

// Client fetches a validation render of a URL and parses its summary.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client with the given request timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("fetch")
	hc := resty.New().
		SetTimeout(timeout).
		SetLogger(logger.Sugar()).
		SetHeader("Cache-Control", "no-cache")
	return &Client{http: hc, logger: logger}
}

// Close releases the underlying transport.
func (c *Client) Close() error { return c.http.Close() }

// ValidateURL requests a validation render of raw and returns its results.
func (c *Client) ValidateURL(ctx context.Context, raw string) ([]taxonomy.Result, error) {
	target, err := ValidationURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, &StatusError{Code: resp.StatusCode(), URL: raw}
	}
	results, err := ExtractErrors(resp.String())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched validation results", zap.String("url", raw), zap.Int("errors", len(results)))
	return results, nil
}
