package hifi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/RunTheBot/echo-HiFi-extension/config"
)

// Response is the slice of an HTTP response the client cares about. The body
// is read fully and the connection released before a Response is returned.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport issues a single GET. Implementations own connection pooling,
// TLS and timeouts; tests swap in fakes.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a Transport backed by a shared http.Client.
func NewHTTPTransport(timeout time.Duration) Transport {
	return &httpTransport{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *httpTransport) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/dash+xml;q=0.9, */*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Gateway builds URLs against the configured proxy endpoint and performs
// GET requests. Retry policy does not live here; callers own it.
type Gateway struct {
	api       config.APIConfig
	transport Transport
	limiter   *rate.Limiter
	logger    *log.Entry
}

func NewGateway(cfg *config.Config, transport Transport) *Gateway {
	var limiter *rate.Limiter
	if cfg.Options.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Options.RateLimitRPS), 1)
	}
	return &Gateway{
		api:       cfg.API,
		transport: transport,
		limiter:   limiter,
		logger:    log.WithFields(log.Fields{"module": "gateway"}),
	}
}

// BuildURL joins the configured base endpoint with path, normalizing the
// leading slash. Fails when no endpoint is configured.
func (g *Gateway) BuildURL(path string) (string, error) {
	if g.api.Endpoint == "" {
		return "", &ConfigurationError{Key: "HIFI_API_ENDPOINT"}
	}
	base := strings.TrimSuffix(g.api.Endpoint, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}

// CountryCode is the configured upstream market.
func (g *Gateway) CountryCode() string {
	return g.api.CountryCode
}

// Fetch performs one GET against the proxy. The open proxy has no auth, so
// the only header sent beyond Accept is the country code.
func (g *Gateway) Fetch(ctx context.Context, url string) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	g.logger.Tracef("GET %s", url)
	resp, err := g.transport.Get(ctx, url, map[string]string{
		"X-Country-Code": g.api.CountryCode,
	})
	if err != nil {
		return nil, err
	}
	g.logger.Tracef("GET %s -> %d (%d bytes)", url, resp.Status, len(resp.Body))
	return resp, nil
}

// EnsureNotRateLimited flags a 429 response. Rate limits are never retried
// by this client.
func (g *Gateway) EnsureNotRateLimited(resp *Response) error {
	if resp.Status == http.StatusTooManyRequests {
		g.logger.Warn("upstream rate limit hit")
		return ErrRateLimited
	}
	return nil
}
