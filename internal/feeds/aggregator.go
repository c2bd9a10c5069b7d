package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"noticiero/internal/logging"
)

const maxFeedBytes = 10 << 20

// Aggregator downloads and parses many feeds concurrently.
type Aggregator struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewAggregator builds an aggregator. A nil client gets a 30 second timeout.
func NewAggregator(client *http.Client, userAgent string, logger *slog.Logger) *Aggregator {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Aggregator{
		client:    client,
		userAgent: userAgent,
		logger:    logging.NewComponentLogger(logger, "feeds"),
	}
}

// Collect fetches every source in parallel and returns the union of their
// items, ordered by source and then by document order. Failing sources are
// logged and contribute nothing.
func (a *Aggregator) Collect(ctx context.Context, sources []Source) []NewsItem {
	logger := logging.WithContext(ctx, a.logger)
	results := make([][]NewsItem, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := a.Fetch(ctx, src)
			if err != nil {
				logging.WarnWithContext(logger, "feed skipped", "feed_fetch_failed",
					logging.String(logging.FieldSource, src.Name),
					logging.String("url", src.URL),
					logging.Error(err),
					logging.String(logging.FieldImpact, "items from this source are excluded from the bulletin"),
					logging.String(logging.FieldErrorHint, "check the feed URL or deactivate the source"),
				)
				return
			}
			logger.Info("feed fetched",
				logging.String(logging.FieldSource, src.Name),
				logging.Int("items", len(items)),
			)
			results[i] = items
		}()
	}
	wg.Wait()

	total := 0
	for _, items := range results {
		total += len(items)
	}
	all := make([]NewsItem, 0, total)
	for _, items := range results {
		all = append(all, items...)
	}
	logger.Info("feeds collected",
		logging.Int("sources", len(sources)),
		logging.Int("items", len(all)),
	)
	return all
}

// Fetch downloads and parses a single source. Items with unusable dates are
// logged and dropped.
func (a *Aggregator) Fetch(ctx context.Context, src Source) ([]NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed %s: build request: %w", src.URL, err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: src.URL}
	}

	logger := logging.WithContext(ctx, a.logger)
	items, err := ParseAll(io.LimitReader(resp.Body, maxFeedBytes), func(itemErr error) {
		logger.Warn("feed item skipped",
			logging.String(logging.FieldSource, src.Name),
			logging.Error(itemErr),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", src.URL, err)
	}
	return items, nil
}
