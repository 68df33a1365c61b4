package wiki

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL         = "https://oldschool.runescape.wiki/api.php"
	defaultRequestInterval = time.Second
)

// ClientOptions controls how the wiki API client is initialised.
type ClientOptions struct {
	// Contact identifies the operator, as required by the wiki's fair-use
	// policy. The client refuses to start without it.
	Contact         string
	BaseURL         string
	RequestInterval time.Duration
	HTTPClient      *http.Client
	Logger          *logrus.Logger
}

// Client executes paced queries against the wiki's query API.
// Every request carries the mandatory identification header and waits on a
// fixed-interval pacer; the pacing is part of the API contract, not tuning.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	pacer     *rate.Limiter
	logger    *logrus.Logger
}

// NewClient constructs a Client. A missing contact string is a hard failure.
func NewClient(opts ClientOptions) (*Client, error) {
	contact := strings.TrimSpace(opts.Contact)
	if contact == "" {
		return nil, eris.New("wiki contact identification is required (set DISCORD_USERNAME)")
	}

	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	interval := opts.RequestInterval
	if interval <= 0 {
		interval = defaultRequestInterval
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: fmt.Sprintf("%s - parsed-osrs", contact),
		http:      httpClient,
		pacer:     rate.NewLimiter(rate.Every(interval), 1),
		logger:    opts.Logger,
	}, nil
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// queryEnvelope is the wiki API result envelope: continuation tokens plus a
// result payload keyed by the list name.
type queryEnvelope struct {
	Continue map[string]string          `json:"continue"`
	Query    map[string]json.RawMessage `json:"query"`
}

// get performs one paced GET against the API and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return eris.Wrap(err, "waiting for request slot")
	}

	requestURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return eris.Wrap(err, "building wiki request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "executing wiki request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("wiki request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "reading wiki response")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "decoding wiki response")
	}

	return nil
}

// RawJSON fetches an arbitrary wiki URL (outside api.php) and decodes its JSON
// body. Used for raw module data such as the Grand Exchange buy limits.
func (c *Client) RawJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return eris.Wrap(err, "waiting for request slot")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "building raw request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "executing raw request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("raw request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "reading raw response")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "decoding raw response")
	}

	return nil
}

func (c *Client) logError(fields logrus.Fields, err error, message string) {
	if c.logger == nil {
		return
	}

	entry := c.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
