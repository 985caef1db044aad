// Package airflow is an orchestrator.Client over the Airflow stable REST API.
package airflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
)

type Config struct {
	// base URL of the Airflow webserver, e.g. "http://airflow.example.com:8080".
	Endpoint string

	Username string
	Password string

	// per-request timeout. Zero means no client-side timeout
	// (the caller's context still applies).
	Timeout time.Duration

	// attempts per API call. Transport failures within this budget are
	// retried with exponential backoff. Zero means 3.
	Attempts int
}

type client struct {
	endpoint string
	username string
	password string
	attempts int
	http     *http.Client
}

func New(conf Config) orchestrator.Client {
	attempts := conf.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	return &client{
		endpoint: conf.Endpoint,
		username: conf.Username,
		password: conf.Password,
		attempts: attempts,
		http:     &http.Client{Timeout: conf.Timeout},
	}
}

var _ orchestrator.Client = &client{}

func (c *client) apiURL(parts ...string) string {
	u := c.endpoint + "/api/v1"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// call sends one API request, retrying transport-level failures.
//
// Responses with status < 500 are returned as-is: 4xx are the server's
// answer, not transport trouble, and must not be retried blindly.
func (c *client) call(ctx context.Context, method string, url string, payload any) (int, []byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = b
	}

	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: true}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if 0 < attempt {
			timer := time.NewTimer(b.Duration())
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, nil, fmt.Errorf("%w: %s", orchestrator.ErrConnection, ctx.Err())
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return 0, nil, err
		}
		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if 500 <= resp.StatusCode {
			lastErr = fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
			continue
		}

		return resp.StatusCode, payload, nil
	}

	return 0, nil, fmt.Errorf("%w: %s", orchestrator.ErrConnection, lastErr)
}

type dagRunResponse struct {
	DagRunId  string  `json:"dag_run_id"`
	State     string  `json:"state"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func (c *client) TriggerRun(
	ctx context.Context, workflowOrchestratorId string, params orchestrator.TriggerParams,
) (string, error) {
	conf := map[string]any{"dagmirror_run_id": params.RunId}
	for k, v := range params.Conf {
		conf[k] = v
	}

	status, payload, err := c.call(
		ctx, http.MethodPost,
		c.apiURL("dags", workflowOrchestratorId, "dagRuns"),
		map[string]any{
			"dag_run_id": "dagmirror__" + params.RunId,
			"conf":       conf,
		},
	)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf(
			"trigger %s: status %d: %s", workflowOrchestratorId, status, payload,
		)
	}

	var run dagRunResponse
	if err := json.Unmarshal(payload, &run); err != nil {
		return "", err
	}
	return run.DagRunId, nil
}

func (c *client) GetRunState(
	ctx context.Context, workflowOrchestratorId string, foreignRunId string,
) (orchestrator.RunState, error) {
	status, payload, err := c.call(
		ctx, http.MethodGet,
		c.apiURL("dags", workflowOrchestratorId, "dagRuns", foreignRunId),
		nil,
	)
	if err != nil {
		return orchestrator.RunState{}, err
	}
	switch status {
	case http.StatusOK:
		// go on
	case http.StatusNotFound:
		return orchestrator.RunState{}, fmt.Errorf(
			"%w: %s/%s", orchestrator.ErrRunNotFound, workflowOrchestratorId, foreignRunId,
		)
	default:
		return orchestrator.RunState{}, fmt.Errorf(
			"get %s/%s: status %d: %s", workflowOrchestratorId, foreignRunId, status, payload,
		)
	}

	var run dagRunResponse
	if err := json.Unmarshal(payload, &run); err != nil {
		return orchestrator.RunState{}, err
	}

	state := orchestrator.RunState{
		State:     run.State,
		StartedAt: parseTimestamp(run.StartDate),
		EndedAt:   parseTimestamp(run.EndDate),
		URL: fmt.Sprintf(
			"%s/dags/%s/grid?dag_run_id=%s",
			c.endpoint, workflowOrchestratorId, url.QueryEscape(foreignRunId),
		),
	}

	// task progress is best-effort presentation data.
	if status, payload, err := c.call(
		ctx, http.MethodGet,
		c.apiURL("dags", workflowOrchestratorId, "dagRuns", foreignRunId, "taskInstances"),
		nil,
	); err == nil && status == http.StatusOK {
		state.Progress = json.RawMessage(payload)
	}

	return state, nil
}

func (c *client) Pause(ctx context.Context, workflowOrchestratorId string) error {
	return c.setPaused(ctx, workflowOrchestratorId, true)
}

func (c *client) Unpause(ctx context.Context, workflowOrchestratorId string) error {
	return c.setPaused(ctx, workflowOrchestratorId, false)
}

func (c *client) setPaused(ctx context.Context, workflowOrchestratorId string, paused bool) error {
	status, payload, err := c.call(
		ctx, http.MethodPatch,
		c.apiURL("dags", workflowOrchestratorId)+"?update_mask=is_paused",
		map[string]any{"is_paused": paused},
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf(
			"set is_paused=%v on %s: status %d: %s", paused, workflowOrchestratorId, status, payload,
		)
	}
	return nil
}

func (c *client) StopRun(
	ctx context.Context, workflowOrchestratorId string, foreignRunId string,
) (bool, error) {
	status, payload, err := c.call(
		ctx, http.MethodPatch,
		c.apiURL("dags", workflowOrchestratorId, "dagRuns", foreignRunId),
		map[string]any{"state": "failed"},
	)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, fmt.Errorf(
			"%w: %s/%s", orchestrator.ErrRunNotFound, workflowOrchestratorId, foreignRunId,
		)
	case http.StatusConflict:
		// already in a terminal state. Nothing to stop.
		return false, nil
	default:
		return false, fmt.Errorf(
			"stop %s/%s: status %d: %s", workflowOrchestratorId, foreignRunId, status, payload,
		)
	}
}

func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
