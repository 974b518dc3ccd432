package routing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// ClientOptions configures the HTTP plumbing shared by the routing adapters.
type ClientOptions struct {
	BaseURL           string
	APIKey            string
	Profile           string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// httpClient issues single-attempt, rate-limited requests against a routing service.
// It is safe for concurrent use.
type httpClient struct {
	session *http.Client
	limiter *rate.Limiter
	apiKey  string
	baseURL string
	profile string
}

func newHTTPClient(opts ClientOptions) *httpClient {
	session := opts.HTTPClient
	if session == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		session = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
		burst = opts.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
	}

	return &httpClient{
		session: session,
		limiter: rate.NewLimiter(limit, burst),
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		profile: opts.Profile,
	}
}

func (c *httpClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do waits for the rate limiter and performs exactly one attempt.
// Responses with status >= 400 are returned as *httpStatusError.
func (c *httpClient) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// secondsToMinutes converts a nullable duration in seconds to nullable minutes.
func secondsToMinutes(s *float64) *float64 {
	if s == nil {
		return nil
	}
	m := *s / 60.0
	return &m
}
