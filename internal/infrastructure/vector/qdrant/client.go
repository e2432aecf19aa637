package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/strataworks/geoassist/internal/core/domain"
)

const defaultTimeout = 60 * time.Second

// Client talks to Qdrant over its HTTP API and serves vector search against
// a single collection. Reconnect swaps the underlying transport; the caller
// owns post-reconnect validation.
type Client struct {
	baseURL    string
	collection string
	timeout    time.Duration

	mu         sync.RWMutex
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		timeout:    defaultTimeout,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type CollectionInfo struct {
	Status      string
	PointsCount int64
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold float64   `json:"score_threshold,omitempty"`
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]domain.SearchResult, error) {
	body := searchRequest{
		Vector:      queryVector,
		Limit:       limit,
		WithPayload: true,
	}
	if scoreThreshold > 0 {
		body.ScoreThreshold = scoreThreshold
	}

	var parsed searchResponse
	if err := c.call(ctx, "search", http.MethodPost, "/points/search", body, &parsed); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(parsed.Result))
	for _, hit := range parsed.Result {
		result := domain.SearchResult{
			Text:     payloadString(hit.Payload, "text"),
			Score:    hit.Score,
			Metadata: hit.Payload,
			Origin:   domain.OriginVector,
		}
		if result.Valid() {
			results = append(results, result)
		}
	}
	return results, nil
}

// HealthCheck probes the collection on every call; no state is cached.
func (c *Client) HealthCheck(ctx context.Context) domain.HealthStatus {
	info, err := c.Info(ctx)
	if err != nil {
		return domain.HealthStatus{
			Store:   domain.StoreVector,
			Healthy: false,
			Detail:  err.Error(),
		}
	}
	return domain.HealthStatus{
		Store:   domain.StoreVector,
		Healthy: true,
		Detail:  fmt.Sprintf("status=%s points=%d", info.Status, info.PointsCount),
	}
}

// Reconnect discards the current transport and installs a fresh one.
func (c *Client) Reconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	replacement := &http.Client{Timeout: c.timeout}

	c.mu.Lock()
	old := c.httpClient
	c.httpClient = replacement
	c.mu.Unlock()

	if old != nil {
		old.CloseIdleConnections()
	}
	return nil
}

func (c *Client) Info(ctx context.Context) (CollectionInfo, error) {
	var parsed struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount int64  `json:"points_count"`
		} `json:"result"`
	}
	if err := c.call(ctx, "collection info", http.MethodGet, "", nil, &parsed); err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{
		Status:      parsed.Result.Status,
		PointsCount: parsed.Result.PointsCount,
	}, nil
}

// call runs one API request against the collection and decodes the reply
// into out. Transport failures and 5xx replies come back as store errors.
func (c *Client) call(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("qdrant %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	url := c.baseURL + "/collections/" + c.collection + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("qdrant %s: build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return domain.NewStoreError(domain.StoreVector, op, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, op); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

// checkStatus maps 5xx responses to store errors so the caller's recovery
// path can tell an unreachable store from a rejected request.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode < 300 {
		return nil
	}

	excerpt := readExcerpt(resp.Body)
	var err error
	if excerpt != "" {
		err = fmt.Errorf("qdrant %s status: %s: %s", op, resp.Status, excerpt)
	} else {
		err = fmt.Errorf("qdrant %s status: %s", op, resp.Status)
	}

	if resp.StatusCode >= 500 {
		return domain.NewStoreError(domain.StoreVector, op, err)
	}
	return err
}

func readExcerpt(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(body))
}

func payloadString(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
