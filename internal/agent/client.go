package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apierrors "github.com/talentops/autopilot/internal/errors"
)

// runsPath is the tool-loop run endpoint on the platform service.
const runsPath = "/v1/tool-loop/runs"

// maxEventLine bounds a single NDJSON event line (the final result can
// carry the full assistant text).
const maxEventLine = 4 * 1024 * 1024

// HTTPRunner invokes the platform's tool-loop service over HTTP. The
// service streams NDJSON events: one "iteration" event per tool-loop step,
// then a single terminal "result" or "error" event.
type HTTPRunner struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPRunner creates a runner against the given base URL. The HTTP
// client carries no timeout of its own: runs are bounded by ctx and by the
// executor's own iteration budget.
func NewHTTPRunner(baseURL, token string) *HTTPRunner {
	return &HTTPRunner{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{},
	}
}

// runRequest is the JSON body posted to the tool-loop service.
type runRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model"`
	Auth     Auth      `json:"auth"`
	Options  struct {
		MaxIterations   int      `json:"max_iterations"`
		MaxOutputTokens int      `json:"max_output_tokens"`
		PreloadTools    []string `json:"preload_tools,omitempty"`
		ReasoningEffort string   `json:"reasoning_effort,omitempty"`
		WebSearch       bool     `json:"include_web_search"`
	} `json:"options"`
}

// Run executes one tool-loop run and returns its structured result.
func (h *HTTPRunner) Run(ctx context.Context, messages []Message, model string, auth Auth, opts Options) (*RunResult, error) {
	opts = opts.Clamped()

	req := runRequest{Messages: messages, Model: model, Auth: auth}
	req.Options.MaxIterations = opts.MaxIterations
	req.Options.MaxOutputTokens = opts.MaxOutputTokens
	req.Options.PreloadTools = opts.PreloadTools
	req.Options.ReasoningEffort = opts.ReasoningEffort
	req.Options.WebSearch = opts.WebSearch

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+runsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	if h.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.Token)
	}

	resp, err := h.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apierrors.Wrap(apierrors.CodeAgentTimeout, "tool-loop run cancelled", err)
		}
		return nil, apierrors.Wrap(apierrors.CodeAgentUnavailable, "tool-loop service unreachable", err).
			WithFix("check agent.base_url and that the platform service is running")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apierrors.Newf(apierrors.CodeAgentUnavailable,
			"tool-loop service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return h.readEvents(resp.Body, opts)
}

// readEvents consumes the NDJSON event stream and assembles the run result.
func (h *HTTPRunner) readEvents(body io.Reader, opts Options) (*RunResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)

	var result *RunResult
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, apierrors.Newf(apierrors.CodeAgentMalformed, "invalid event line: %.120s", line)
		}

		event := gjson.Parse(line)
		switch event.Get("type").String() {
		case "iteration":
			if opts.OnIteration != nil {
				var toolNames []string
				for _, t := range event.Get("tool_calls").Array() {
					toolNames = append(toolNames, t.String())
				}
				opts.OnIteration(
					int(event.Get("iteration").Int()),
					toolNames,
					int(event.Get("output_len").Int()),
				)
			}
		case "result":
			r := &RunResult{
				Iterations: int(event.Get("iterations").Int()),
				Assistant:  event.Get("assistant").String(),
			}
			for _, t := range event.Get("all_tool_call_names").Array() {
				r.ToolCalls = append(r.ToolCalls, t.String())
			}
			result = r
		case "error":
			msg := event.Get("message").String()
			if msg == "" {
				msg = "executor reported an error"
			}
			return nil, apierrors.New(apierrors.CodeAgentUnavailable, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apierrors.Wrap(apierrors.CodeAgentMalformed, "read event stream", err)
	}
	if result == nil {
		return nil, apierrors.New(apierrors.CodeAgentMalformed, "event stream ended without a result")
	}
	return result, nil
}

// WaitUntilReady polls the service health endpoint until it responds or the
// timeout elapses.
func (h *HTTPRunner) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/healthz", nil)
		if err != nil {
			return err
		}
		resp, err := h.Client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return apierrors.New(apierrors.CodeAgentUnavailable, "tool-loop service not ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
