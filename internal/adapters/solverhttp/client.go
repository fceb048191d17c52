package solverhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"twostep-routing-service/internal/platform/obs"
	"twostep-routing-service/internal/solver"
)

// Client implements ports.Solver against a remote optimization service
// speaking the optimizeTours JSON schema. The solver may take the full
// request timeout to respond, so the HTTP timeout is generous and the
// caller's context governs cancellation.
//
// The client is safe for concurrent use.
type Client struct {
	session *http.Client
	apiKey  string
	baseURL string
}

func NewClient(baseURL string, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("solver base URL is empty")
	}

	client := &Client{
		session: &http.Client{Timeout: 10 * time.Minute},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	return client, nil
}

// Submit one optimization request and decode the solution.
func (c *Client) OptimizeTours(
	ctx context.Context,
	req *solver.Request,
) (_ *solver.Response, err error) {
	defer obs.Time(ctx, "solver.OptimizeTours")(&err)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("optimize tours: encode request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(
			ctx, http.MethodPost, c.baseURL+"/v1:optimizeTours", bytes.NewReader(payload),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("optimize tours %q: %w", req.Label, err)
	}
	defer resp.Body.Close()

	var out solver.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("optimize tours %q: decode response: %w", req.Label, err)
	}

	return &out, nil
}
