package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

// Dispatch statuses a device agent may report.
const (
	agentStatusSuccess          = "success"
	agentStatusTransientFailure = "transient-failure"
	agentStatusPermanentFailure = "permanent-failure"
)

const defaultAgentTimeout = 30 * time.Second

// AgentConfig tunes the device-agent HTTP client.
type AgentConfig struct {
	// BaseURL is the agent daemon root, e.g. "http://127.0.0.1:8700".
	BaseURL string

	// Token, when set, is sent as a bearer token.
	Token string

	// Timeout bounds each dispatch request.
	Timeout time.Duration
}

// Agent dispatches steps to a device-agent daemon over HTTP JSON.
//
// The agent decides how a step fails: a "transient-failure" status (and
// any transport or 5xx error) is retryable, a "permanent-failure" is
// not. Retry policy itself stays with the executor.
type Agent struct {
	config     *AgentConfig
	httpClient *http.Client
	logger     *logging.Logger
}

// agentDispatchRequest is the dispatch request body.
type agentDispatchRequest struct {
	StepIndex int    `json:"step_index"`
	StepText  string `json:"step_text"`
	TaskID    string `json:"task_id"`
}

// agentDispatchResponse is the dispatch response body.
type agentDispatchResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// NewAgent creates a device-agent dispatcher.
func NewAgent(cfg *AgentConfig, logger *logging.Logger) (*Agent, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, errors.New("agent base URL is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}

	return &Agent{
		config: &AgentConfig{
			BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
			Token:   cfg.Token,
			Timeout: timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Dispatch sends one step to the agent daemon and maps its reply onto
// the dispatcher contract.
func (a *Agent) Dispatch(ctx context.Context, step task.Step) (*executor.Result, error) {
	reqBody := agentDispatchRequest{
		StepIndex: step.Index,
		StepText:  step.Text,
		TaskID:    logging.TaskIDFromContext(ctx),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.BaseURL+"/v1/dispatch", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.config.Token)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, executor.Transient(fmt.Errorf("agent request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, executor.Transient(fmt.Errorf("read agent response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, executor.Transient(fmt.Errorf("agent rate limited (429)"))
	}
	if resp.StatusCode >= 500 {
		return nil, executor.Transient(fmt.Errorf("agent server error (%d): %s", resp.StatusCode, body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent error (%d): %s", resp.StatusCode, body)
	}

	var agentResp agentDispatchResponse
	if err := json.Unmarshal(body, &agentResp); err != nil {
		return nil, fmt.Errorf("parse agent response: %w", err)
	}

	switch agentResp.Status {
	case agentStatusSuccess:
		return &executor.Result{
			Message: agentResp.Message,
			Image:   a.decodeImage(ctx, agentResp.ImageBase64),
		}, nil
	case agentStatusTransientFailure:
		return nil, executor.Transient(fmt.Errorf("agent reported transient failure: %s", agentResp.Message))
	case agentStatusPermanentFailure:
		return nil, fmt.Errorf("agent reported permanent failure: %s", agentResp.Message)
	default:
		return nil, fmt.Errorf("agent returned unknown status %q", agentResp.Status)
	}
}

// decodeImage decodes the optional screenshot payload. A bad payload
// loses the artifact, never the step.
func (a *Agent) decodeImage(ctx context.Context, encoded string) []byte {
	if encoded == "" {
		return nil
	}
	img, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		a.logger.Warn(ctx, "agent sent undecodable screenshot", zap.Error(err))
		return nil
	}
	return img
}
