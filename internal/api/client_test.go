package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultBaseURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultBaseURL)
	}

	u, err = parseBaseURL("https://routes.example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
}

func TestClient_FetchesEndpointsAndEncodesQueries(t *testing.T) {
	t.Parallel()

	var gotOrdersQuery url.Values
	var gotVehiclesQuery url.Values
	var gotUserAgent string
	var gotRequestID string
	var gotCreate JobRequest
	var cancelled bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/jobs/7":
			sid := int64(99)
			_ = json.NewEncoder(w).Encode(Job{ID: 7, Status: JobCompleted, Progress: 100, SolutionID: &sid})
		case r.Method == http.MethodPost && r.URL.Path == "/api/jobs/7/cancel":
			cancelled = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/api/jobs":
			_ = json.NewDecoder(r.Body).Decode(&gotCreate)
			_ = json.NewEncoder(w).Encode(Job{ID: 8, Status: JobPending})
		case r.URL.Path == "/api/solutions/99":
			_ = json.NewEncoder(w).Encode(Solution{ID: 99, JobID: 7, Routes: []Route{{VehicleID: 1, Stops: []Stop{{OrderID: 3}, {OrderID: 4}}}}})
		case r.URL.Path == "/api/orders":
			gotOrdersQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(OrderListResponse{Items: []Order{{ID: 3, Code: "ORD-3"}}})
		case r.URL.Path == "/api/vehicles":
			gotVehiclesQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(VehicleListResponse{Items: []Vehicle{{ID: 1, Plate: "AB-123"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	job, err := c.GetJob(ctx, 7)
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if job.Status != JobCompleted || !job.HasSolution() || *job.SolutionID != 99 {
		t.Fatalf("GetJob payload = %#v, want completed with solution 99", job)
	}

	if err := c.CancelJob(ctx, 7); err != nil {
		t.Fatalf("CancelJob returned error: %v", err)
	}
	if !cancelled {
		t.Fatalf("CancelJob did not reach the cancel endpoint")
	}

	created, err := c.CreateJob(ctx, JobRequest{BranchID: 2, Date: "2026-10-19", OrderIDs: []int64{3, 4}, VehicleIDs: []int64{1}})
	if err != nil {
		t.Fatalf("CreateJob returned error: %v", err)
	}
	if created.ID != 8 || gotCreate.BranchID != 2 || len(gotCreate.OrderIDs) != 2 {
		t.Fatalf("CreateJob = %#v body = %#v", created, gotCreate)
	}

	sol, err := c.GetSolution(ctx, 99)
	if err != nil {
		t.Fatalf("GetSolution returned error: %v", err)
	}
	if sol.StopCount() != 2 {
		t.Fatalf("StopCount = %d, want 2", sol.StopCount())
	}

	orders, err := c.ListOrders(ctx, OrderQuery{BranchID: 2, Date: " 2026-10-19 "})
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}
	if len(orders) != 1 || orders[0].Code != "ORD-3" {
		t.Fatalf("ListOrders = %#v", orders)
	}
	if gotOrdersQuery.Get("branch") != "2" || gotOrdersQuery.Get("date") != "2026-10-19" {
		t.Fatalf("ListOrders query = %v, want params encoded", gotOrdersQuery)
	}

	vehicles, err := c.ListVehicles(ctx, 2)
	if err != nil {
		t.Fatalf("ListVehicles returned error: %v", err)
	}
	if len(vehicles) != 1 || gotVehiclesQuery.Get("branch") != "2" {
		t.Fatalf("ListVehicles = %#v query = %v", vehicles, gotVehiclesQuery)
	}

	if !strings.HasPrefix(gotUserAgent, "courier/") {
		t.Fatalf("User-Agent = %q, want courier/*", gotUserAgent)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID header missing")
	}
}

func TestClient_CreateJobRequiresSelection(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.CreateJob(context.Background(), JobRequest{VehicleIDs: []int64{1}}); err == nil {
		t.Fatalf("CreateJob without orders returned nil error")
	}
	if _, err := c.CreateJob(context.Background(), JobRequest{OrderIDs: []int64{1}}); err == nil {
		t.Fatalf("CreateJob without vehicles returned nil error")
	}
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/jobs/1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case "/api/jobs/2":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.GetJob(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("GetJob error = %v, want decode response error", err)
	}

	_, err = c.GetJob(context.Background(), 2)
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("GetJob error = %v, want status 500 error", err)
	}
	if !IsTransient(err) {
		t.Fatalf("status 500 should be transient")
	}

	_, err = c.GetSolution(context.Background(), 404)
	if !IsNotFound(err) {
		t.Fatalf("GetSolution error = %v, want not found", err)
	}
	if IsTransient(err) {
		t.Fatalf("404 should not be transient")
	}
}

func TestError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		notFound  bool
	}{
		{"network", &Error{Err: errors.New("connection refused")}, true, false},
		{"rate limited", &Error{StatusCode: http.StatusTooManyRequests}, true, false},
		{"server", &Error{StatusCode: http.StatusBadGateway}, true, false},
		{"not found", &Error{StatusCode: http.StatusNotFound}, false, true},
		{"gone", &Error{StatusCode: http.StatusGone}, false, true},
		{"bad request", &Error{StatusCode: http.StatusBadRequest}, false, false},
		{"plain error", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient = %v, want %v", got, tt.transient)
			}
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, tt.notFound)
			}
		})
	}
}
