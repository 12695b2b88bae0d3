package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobQuery fetches and cancels optimization jobs.
type JobQuery interface {
	GetJob(ctx context.Context, id int64) (Job, error)
	CancelJob(ctx context.Context, id int64) error
}

// JobCreator submits new optimization jobs.
type JobCreator interface {
	CreateJob(ctx context.Context, req JobRequest) (Job, error)
}

// SolutionQuery fetches optimization results.
type SolutionQuery interface {
	GetSolution(ctx context.Context, id int64) (Solution, error)
}

// Ensure Client implements the query interfaces at compile time.
var (
	_ JobQuery      = (*Client)(nil)
	_ JobCreator    = (*Client)(nil)
	_ SolutionQuery = (*Client)(nil)
)

// Client talks to the route-optimization HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultBaseURL   = "127.0.0.1:8080"
	defaultUserAgent = "courier/0.1"
	requestTimeout   = 10 * time.Second
)

// NewClient builds a Client for the given host:port or URL.
func NewClient(baseURL string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// GetJob retrieves the latest snapshot of a job.
func (c *Client) GetJob(ctx context.Context, id int64) (Job, error) {
	if c == nil {
		return Job{}, fmt.Errorf("client is nil")
	}
	var payload Job
	if err := c.do(ctx, http.MethodGet, jobPath(id), nil, &payload); err != nil {
		return Job{}, err
	}
	return payload, nil
}

// CancelJob asks the server to stop a running job.
func (c *Client) CancelJob(ctx context.Context, id int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodPost, jobPath(id)+"/cancel", nil, nil)
}

// CreateJob submits a new optimization job.
func (c *Client) CreateJob(ctx context.Context, req JobRequest) (Job, error) {
	if c == nil {
		return Job{}, fmt.Errorf("client is nil")
	}
	if len(req.OrderIDs) == 0 {
		return Job{}, fmt.Errorf("at least one order required")
	}
	if len(req.VehicleIDs) == 0 {
		return Job{}, fmt.Errorf("at least one vehicle required")
	}
	var payload Job
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &payload); err != nil {
		return Job{}, err
	}
	return payload, nil
}

// GetSolution retrieves an optimization result.
func (c *Client) GetSolution(ctx context.Context, id int64) (Solution, error) {
	if c == nil {
		return Solution{}, fmt.Errorf("client is nil")
	}
	var payload Solution
	path := "/api/solutions/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return Solution{}, err
	}
	return payload, nil
}

// OrderQuery selects the orders page to list.
type OrderQuery struct {
	BranchID int64
	Date     string
}

// ListOrders retrieves the orders for a branch and delivery date.
func (c *Client) ListOrders(ctx context.Context, query OrderQuery) ([]Order, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if query.BranchID > 0 {
		values.Set("branch", strconv.FormatInt(query.BranchID, 10))
	}
	if date := strings.TrimSpace(query.Date); date != "" {
		values.Set("date", date)
	}
	rel := &url.URL{Path: "/api/orders", RawQuery: values.Encode()}
	var payload OrderListResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// ListVehicles retrieves the fleet for a branch.
func (c *Client) ListVehicles(ctx context.Context, branchID int64) ([]Vehicle, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if branchID > 0 {
		values.Set("branch", strconv.FormatInt(branchID, 10))
	}
	rel := &url.URL{Path: "/api/vehicles", RawQuery: values.Encode()}
	var payload VehicleListResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func jobPath(id int64) string {
	return "/api/jobs/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Method: method, Path: rel.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &Error{Method: method, Path: rel.Path, StatusCode: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
