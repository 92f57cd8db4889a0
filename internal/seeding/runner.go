package seeding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/farbklang/pkg/logger"
)

// settlePoll is how often the record count is polled while saves land.
const settlePoll = 100 * time.Millisecond

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// Run seeds a running service with random ratings and checks one similarity
// query against them.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()
	log.Info(ctx, "starting seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("count", cfg.Count),
		logger.Int("workers", cfg.Workers),
		logger.Int("k", cfg.K),
		logger.Duration("timeout", cfg.Timeout),
		logger.Any("seed", cfg.Seed))

	client := NewClient(strings.TrimRight(cfg.BaseURL, "/"), &http.Client{Timeout: cfg.Timeout})

	if _, err := checkHealth(ctx, client); err != nil {
		return stats, err
	}

	var opts Options
	if _, err := client.getJSON(ctx, "/options", &opts); err != nil {
		return stats, fmt.Errorf("load options: %w", err)
	}

	gen := NewGenerator(cfg.Seed, opts)
	ratings := gen.Ratings(cfg.Count)
	stats.Generated = len(ratings)

	if err := submitRatings(ctx, client, ratings, cfg.Workers, stats); err != nil {
		return stats, fmt.Errorf("rating submission failed: %w", err)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrSubmissionsFailed, stats.Failed, stats.Submitted)
	}

	records, err := waitForRecords(ctx, client, cfg.Count, cfg.Settle)
	stats.Records = records
	if err != nil {
		return stats, err
	}

	query := gen.Palette()
	resp, err := querySimilar(ctx, client, query, cfg.K)
	if err != nil {
		return stats, err
	}
	stats.Matches = len(resp.Matches)
	if err := verifySimilar(query, resp, cfg.K); err != nil {
		return stats, err
	}
	if want := min(cfg.K, records-len(resp.Skipped)); len(resp.Matches) < want {
		return stats, fmt.Errorf("%w: %d matches, want %d", ErrVerification, len(resp.Matches), want)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, query, resp, stats)
	return stats, nil
}

// checkHealth verifies the service is running and returns its record count.
func checkHealth(ctx context.Context, c *Client) (int, error) {
	var h healthResponse
	status, err := c.getJSON(ctx, "/healthz", &h)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return h.Records, nil
}

// waitForRecords polls /healthz until the store holds at least want records.
func waitForRecords(ctx context.Context, c *Client, want int, wait time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	var have int
	for {
		n, err := checkHealth(ctx, c)
		if err == nil {
			have = n
			if have >= want {
				return have, nil
			}
		}
		select {
		case <-ctx.Done():
			return have, fmt.Errorf("%w: %d of %d records after %s", ErrNotSettled, have, want, wait)
		case <-ticker.C:
		}
	}
}

func querySimilar(ctx context.Context, c *Client, query [3]string, k int) (SimilarResponse, error) {
	q := url.Values{}
	for i, hex := range query {
		q.Set("c"+strconv.Itoa(i+1), strings.TrimPrefix(hex, "#"))
	}
	q.Set("limit", strconv.Itoa(k))

	var resp SimilarResponse
	if _, err := c.getJSON(ctx, "/similar?"+q.Encode(), &resp); err != nil {
		return SimilarResponse{}, fmt.Errorf("similar query failed: %w", err)
	}
	return resp, nil
}

func logStats(ctx context.Context, query [3]string, resp SimilarResponse, stats *Stats) {
	log := logger.Get()
	for _, m := range resp.Matches {
		log.Info(ctx, "similar song",
			logger.Int("rank", m.Rank),
			logger.String("song", m.Song),
			logger.Float64("distance", m.Distance))
	}

	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "seeding completed",
		logger.Strings("query", query[:]),
		logger.Int("generated", stats.Generated),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("records", stats.Records),
		logger.Int("matches", stats.Matches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("ratingsPerSecond", perSecond))
}
