// Package source fetches datasets over HTTP(S). All methods are
// context-aware, respect the shared rate limiter, and retry on transient
// errors (429, 5xx).
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/derickschaefer/spread/internal/dataset"
	"github.com/derickschaefer/spread/internal/model"
)

const (
	maxRetries   = 4
	maxBodyBytes = 32 << 20
	userAgent    = "spread-cli/1.0"
)

// Client is the dataset HTTP client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	backoff    time.Duration // base delay before the first retry
}

// NewClient creates a Client with the given timeout and request rate.
// A nil logger discards debug output.
func NewClient(timeout time.Duration, ratePerSec float64, logger *log.Logger) *Client {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:  logger,
		backoff: 500 * time.Millisecond,
	}
}

// SetBackoff overrides the base retry delay. Intended for tests.
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// IsURL reports whether s names an http or https resource.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ─── Datasets ─────────────────────────────────────────────────────────────────

// Fetch downloads and parses the dataset at rawURL. When opts.Format is
// empty the format is taken from the URL path extension, falling back to
// the response Content-Type.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts dataset.Options) (*model.Dataset, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("fetch %s: not an http(s) URL", rawURL)
	}

	body, contentType, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if opts.Format == "" {
		if f, err := dataset.DetectFormat(u.Path); err == nil {
			opts.Format = f
		} else if f := formatFromContentType(contentType); f != "" {
			opts.Format = f
		} else {
			return nil, fmt.Errorf("fetch %s: cannot detect format (content type %q): use --input-format", rawURL, contentType)
		}
	}

	ds, err := dataset.Read(bytes.NewReader(body), opts)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	ds.Source = rawURL
	if ds.Name == "" {
		ds.Name = dataset.NameFromPath(path.Base(u.Path))
	}
	return ds, nil
}

func formatFromContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	switch mt {
	case "application/json":
		return dataset.FormatJSON
	case "application/x-ndjson", "application/jsonl", "application/x-jsonlines":
		return dataset.FormatJSONL
	case "text/csv":
		return dataset.FormatCSV
	case "text/tab-separated-values":
		return dataset.FormatTSV
	case "application/yaml", "application/x-yaml", "text/yaml":
		return dataset.FormatYAML
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return dataset.FormatXLSX
	}
	return ""
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// get performs a GET request, handling rate limiting and retries.
// Returns the body and its Content-Type.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	c.logger.Debug("http request", "url", redact(reqURL))

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			c.logger.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, "", fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}
		c.logger.Debug("http response", "status", resp.StatusCode, "bytes", len(body))

		// Retry on server errors and rate limiting
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(body))
		}
		if len(body) > maxBodyBytes {
			return nil, "", fmt.Errorf("response exceeds %d MiB", maxBodyBytes>>20)
		}
		return body, resp.Header.Get("Content-Type"), nil
	}
	return nil, "", fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// redact hides credentials and query values that might carry tokens.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.User("REDACTED")
	}
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	return u.String()
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return s
}
