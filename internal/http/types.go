package http

import "github.com/fyrsmithlabs/uipilot/internal/store"

// CreateTaskRequest is the body of POST /api/v1/tasks.
type CreateTaskRequest struct {
	Goal string `json:"goal"`
}

// TaskListResponse is the body of GET /api/v1/tasks.
type TaskListResponse struct {
	Tasks []store.Entry `json:"tasks"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
