package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentscout/discovery"
	"github.com/BaSui01/agentscout/internal/ctxkeys"
	"github.com/BaSui01/agentscout/internal/metrics"
	"github.com/BaSui01/agentscout/internal/tlsutil"
)

const (
	// defaultBaseURL is used when no registry URL is configured.
	defaultBaseURL = "https://registry.chat39.com"

	// healthCheckTimeout caps a single health probe.
	healthCheckTimeout = 5 * time.Second
)

// ClientConfig holds configuration for the registry client.
type ClientConfig struct {
	// BaseURL is the registry's base URL.
	BaseURL string `json:"base_url"`

	// Timeout is the default timeout for HTTP requests.
	Timeout time.Duration `json:"timeout"`

	// RetryCount is the number of retries for failed requests.
	RetryCount int `json:"retry_count"`

	// RetryDelay is the delay between retries.
	RetryDelay time.Duration `json:"retry_delay"`

	// RateLimit is the sustained request rate in requests per second.
	// Zero or negative disables rate limiting.
	RateLimit float64 `json:"rate_limit"`

	// RateBurst is the burst allowance on top of RateLimit.
	RateBurst int `json:"rate_burst"`

	// Headers are extra headers included in every request.
	Headers map[string]string `json:"headers"`

	// InsecureSkipVerify disables certificate verification. Development
	// only, for registries running self-signed certs.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// DefaultClientConfig returns a ClientConfig with sensible defaults for the
// given base URL. An empty baseURL falls back to the public registry.
func DefaultClientConfig(baseURL string) *ClientConfig {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ClientConfig{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Timeout:    30 * time.Second,
		RetryCount: 3,
		RetryDelay: 1 * time.Second,
		RateLimit:  20,
		RateBurst:  40,
		Headers:    make(map[string]string),
	}
}

// Client is an HTTP client for the agent index registry. It implements
// discovery.Registry and exposes the registry's management surface.
type Client struct {
	config     *ClientConfig
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewClient creates a registry client. A nil config uses defaults; a nil
// logger is replaced with a no-op logger.
func NewClient(config *ClientConfig, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultClientConfig("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limit := rate.Inf
	burst := 1
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
		if config.RateBurst > 0 {
			burst = config.RateBurst
		}
	}

	httpClient := tlsutil.SecureHTTPClient(config.Timeout)
	if config.InsecureSkipVerify {
		httpClient = tlsutil.InsecureHTTPClient(config.Timeout)
	}

	return &Client{
		config:     config,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With(zap.String("component", "registry_client")),
	}
}

// SetCollector wires a metrics collector for transport metrics.
func (c *Client) SetCollector(collector *metrics.Collector) {
	c.collector = collector
}

// BaseURL returns the normalized registry base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SearchAgents queries the registry's search endpoint. When the endpoint is
// unavailable or answers with a non-200 status, the full listing is fetched
// and filtered client-side with the same semantics.
func (c *Client) SearchAgents(ctx context.Context, query discovery.SearchQuery) ([]discovery.AgentRecord, error) {
	params := url.Values{}
	if query.Query != "" {
		params.Set("q", query.Query)
	}
	if len(query.Capabilities) > 0 {
		params.Set("capabilities", strings.Join(query.Capabilities, ","))
	}
	if len(query.Tags) > 0 {
		params.Set("tags", strings.Join(query.Tags, ","))
	}

	body, status, err := c.do(ctx, http.MethodGet, "search", "/search", params, nil)
	if err != nil || status != http.StatusOK {
		c.logger.Debug("server-side search unavailable, filtering locally",
			zap.Int("status", status),
			zap.Error(err),
		)
		return c.filterLocally(ctx, query)
	}

	return decodeAgents(body)
}

// ListAgents fetches the full agent listing.
func (c *Client) ListAgents(ctx context.Context) ([]discovery.AgentRecord, error) {
	body, status, err := c.do(ctx, http.MethodGet, "list", "/list", nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRegistryUnavailable, status)
	}
	return decodeAgents(body)
}

// ListClients fetches the client listing, falling back to the agent listing
// on registry deployments that do not expose /clients.
func (c *Client) ListClients(ctx context.Context) ([]discovery.AgentRecord, error) {
	body, status, err := c.do(ctx, http.MethodGet, "clients", "/clients", nil, nil)
	if err != nil || status != http.StatusOK {
		return c.ListAgents(ctx)
	}
	return decodeAgents(body)
}

// GetAgentMetadata looks up a single agent. A 404 maps to ErrAgentNotFound.
func (c *Client) GetAgentMetadata(ctx context.Context, agentID string) (*discovery.AgentRecord, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: empty agent_id", ErrInvalidRequest)
	}

	body, status, err := c.do(ctx, http.MethodGet, "lookup", "/lookup/"+url.PathEscape(agentID), nil, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrRegistryUnavailable, status)
	}

	var record discovery.AgentRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	// Some deployments omit agent_id from lookup responses.
	if record.AgentID == "" {
		record.AgentID = agentID
	}
	return &record, nil
}

// Register registers an agent with the registry.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if req.AgentID == "" {
		return fmt.Errorf("%w: missing agent_id", ErrInvalidRequest)
	}
	if req.AgentURL == "" {
		return fmt.Errorf("%w: missing agent_url", ErrInvalidRequest)
	}

	_, status, err := c.do(ctx, http.MethodPost, "register", "/register", nil, req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRegistryUnavailable, status)
	}
	return nil
}

// UpdateStatus sends a status heartbeat for the agent, stamping LastSeen
// with the current time.
func (c *Client) UpdateStatus(ctx context.Context, agentID string, status discovery.AgentStatus) error {
	if agentID == "" {
		return fmt.Errorf("%w: empty agent_id", ErrInvalidRequest)
	}

	update := StatusUpdate{
		AgentID:  agentID,
		Status:   status,
		LastSeen: &discovery.Timestamp{Time: time.Now().UTC()},
	}
	_, code, err := c.do(ctx, http.MethodPut, "status", "/agents/"+url.PathEscape(agentID)+"/status", nil, update)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRegistryUnavailable, code)
	}
	return nil
}

// Unregister removes an agent from the registry.
func (c *Client) Unregister(ctx context.Context, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("%w: empty agent_id", ErrInvalidRequest)
	}

	_, status, err := c.do(ctx, http.MethodDelete, "unregister", "/agents/"+url.PathEscape(agentID), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRegistryUnavailable, status)
	}
	return nil
}

// Health probes the registry's health endpoint. The probe carries its own
// short timeout so a hung registry cannot stall callers for the full client
// timeout.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	_, status, err := c.do(ctx, http.MethodGet, "health", "/health", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRegistryUnavailable, status)
	}
	return nil
}

// Stats fetches registry statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	body, status, err := c.do(ctx, http.MethodGet, "stats", "/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRegistryUnavailable, status)
	}

	var stats Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &stats, nil
}

// filterLocally applies the search semantics over the full listing: query
// as a case-insensitive substring over "agent_id description", then any
// capability overlap, then any tag overlap.
func (c *Client) filterLocally(ctx context.Context, query discovery.SearchQuery) ([]discovery.AgentRecord, error) {
	agents, err := c.ListAgents(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query.Query)
	var filtered []discovery.AgentRecord
	for _, agent := range agents {
		if needle != "" {
			haystack := strings.ToLower(agent.AgentID + " " + agent.Description)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		if len(query.Capabilities) > 0 && !anyOverlap(query.Capabilities, agent.Capabilities) {
			continue
		}
		if len(query.Tags) > 0 && !anyOverlap(query.Tags, agent.Tags) {
			continue
		}
		filtered = append(filtered, agent)
	}
	return filtered, nil
}

// do executes one rate-limited request with retries. Transport errors and
// 5xx responses are retried with a fixed delay; any other response is
// returned to the caller. The same X-Request-ID is reused across attempts.
func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, payload any) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	requestID, ok := ctxkeys.RequestID(ctx)
	if !ok {
		requestID = uuid.NewString()
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-Request-ID", requestID)
		for k, v := range c.config.Headers {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, lastErr = c.httpClient.Do(req)
		status := 0
		if lastErr == nil {
			status = resp.StatusCode
		}
		if c.collector != nil {
			c.collector.RecordRegistryRequest(endpoint, status, time.Since(start))
		}
		if lastErr == nil && status < http.StatusInternalServerError {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		if attempt < c.config.RetryCount {
			c.logger.Debug("retrying registry request",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt+1),
				zap.Int("status", status),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	if lastErr != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRegistryUnavailable, lastErr)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		// Body was already closed by the retry loop.
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", ErrRegistryUnavailable, resp.StatusCode)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// decodeAgents accepts either a bare array of agent records or an
// {"agents": [...]} envelope.
func decodeAgents(body []byte) ([]discovery.AgentRecord, error) {
	var agents []discovery.AgentRecord
	if err := json.Unmarshal(body, &agents); err == nil {
		return agents, nil
	}
	var envelope agentListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return envelope.Agents, nil
}

// anyOverlap reports whether the two sets share at least one element.
func anyOverlap(wanted, have []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range wanted {
		if set[w] {
			return true
		}
	}
	return false
}

// Ensure Client implements the discovery registry interface.
var _ discovery.Registry = (*Client)(nil)
