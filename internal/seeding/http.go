package seeding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/farbklang/pkg/logger"
)

// maxResponseBody bounds how much of an answer is read.
const maxResponseBody = 4 << 20

// Client talks JSON to a running service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A nil hc uses a client with no timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: hc}
}

// getJSON performs a GET and decodes a 200 answer into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// postJSON performs a POST with a JSON body and decodes the answer into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s: %w", req.URL.Path, err)
		}
	}
	return resp.StatusCode, nil
}

// submitRatings posts ratings with at most workers requests in flight.
// Refused ratings are counted; transport errors stop the run.
func submitRatings(ctx context.Context, c *Client, ratings []Rating, workers int, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting ratings", logger.Int("count", len(ratings)), logger.Int("workers", workers))

	var submitted, accepted, duplicate, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, r := range ratings {
		g.Go(func() error {
			var ack AckResponse
			status, err := c.postJSON(gctx, "/ratings", r, &ack)
			submitted.Add(1)
			switch {
			case status == 0 && err != nil:
				failed.Add(1)
				return err
			case err != nil:
				failed.Add(1)
				log.Warn(gctx, "rating refused", logger.String("song", r.Song), logger.Error(err))
			case status == http.StatusOK || ack.Duplicate:
				duplicate.Add(1)
			default:
				accepted.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())

	log.Info(ctx, "rating submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))
	return err
}
