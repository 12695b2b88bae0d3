// Package api provides an HTTP client for the route-optimization server.
//
// # Overview
//
// The client covers the endpoints the dashboard consumes: job snapshots,
// job submission and cancellation, solutions, and the order and vehicle
// lists for a branch. Responses are decoded into the types in types.go.
//
// # Endpoints
//
//   - GET  /api/jobs/{id}: job snapshot (status, progress, solution id)
//   - POST /api/jobs: submit an optimization job
//   - POST /api/jobs/{id}/cancel: request cancellation
//   - GET  /api/solutions/{id}: optimization result
//   - GET  /api/orders?branch=&date=: orders for a delivery date
//   - GET  /api/vehicles?branch=: fleet for a branch
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: courier/0.1
//   - Carry a random X-Request-ID so server logs can be correlated
//   - Have a 10-second timeout
//
// # Error Handling
//
// Transport failures and HTTP status codes >= 400 are returned as *Error.
// IsTransient reports network failures, 429 and 5xx responses, which callers
// such as the job poller treat as "try again next tick". IsNotFound reports
// 404/410 responses, which mean a stored job or solution id no longer
// resolves. Decode failures are plain wrapped errors.
//
// The query interfaces (JobQuery, JobCreator, SolutionQuery) are what the
// tracker and restoration packages depend on; tests substitute fakes.
package api
