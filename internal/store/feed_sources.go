package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"noticiero/internal/services"
)

const feedColumns = "id, name, url, active, created_at, updated_at"

func scanFeedSource(scanner interface{ Scan(dest ...any) error }) (*FeedSource, error) {
	var (
		f                      FeedSource
		active                 int
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&f.ID, &f.Name, &f.URL, &active, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	f.Active = active != 0
	f.CreatedAt = parseTime(createdRaw)
	f.UpdatedAt = parseTime(updatedRaw)
	return &f, nil
}

// ValidateFeedURL accepts absolute http and https URLs.
func ValidateFeedURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return services.Wrap(services.ErrValidation, "store", "feed url", fmt.Sprintf("%q is not an http(s) URL", raw), nil)
	}
	return nil
}

// AddFeedSource registers an active feed. URLs are unique.
func (s *Store) AddFeedSource(ctx context.Context, name, rawURL string) (*FeedSource, error) {
	name = strings.TrimSpace(name)
	rawURL = strings.TrimSpace(rawURL)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "feed name", "name is required", nil)
	}
	if err := ValidateFeedURL(rawURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	feed := &FeedSource{ID: uuid.NewString(), Name: name, URL: rawURL, Active: true, CreatedAt: now, UpdatedAt: now}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO feed_sources (`+feedColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		feed.ID, feed.Name, feed.URL, boolToInt(feed.Active), formatTime(now), formatTime(now),
	)
	if isUniqueViolation(err) {
		return nil, services.Wrap(services.ErrValidation, "store", "add feed", "url already registered: "+rawURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("insert feed source: %w", err)
	}
	return feed, nil
}

// GetFeedSource returns one feed or an error marked ErrNotFound.
func (s *Store) GetFeedSource(ctx context.Context, id string) (*FeedSource, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+feedColumns+` FROM feed_sources WHERE id = ?`, id)
	feed, err := scanFeedSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get feed", "no feed with id "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get feed source: %w", err)
	}
	return feed, nil
}

// ListFeedSources returns feeds in registration order.
func (s *Store) ListFeedSources(ctx context.Context, activeOnly bool) ([]*FeedSource, error) {
	query := sq.Select(feedColumns).From("feed_sources").OrderBy("created_at", "name")
	if activeOnly {
		query = query.Where(sq.Eq{"active": 1})
	}
	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feed query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list feed sources: %w", err)
	}
	defer rows.Close()

	var out []*FeedSource
	for rows.Next() {
		feed, err := scanFeedSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed source: %w", err)
		}
		out = append(out, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed sources: %w", err)
	}
	return out, nil
}

// SetFeedActive toggles whether a feed is fetched.
func (s *Store) SetFeedActive(ctx context.Context, id string, active bool) (*FeedSource, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE feed_sources SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), formatTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update feed source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "update feed", "no feed with id "+id, nil)
	}
	return s.GetFeedSource(ctx, id)
}

// DeleteFeedSource removes a feed.
func (s *Store) DeleteFeedSource(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM feed_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "delete feed", "no feed with id "+id, nil)
	}
	return nil
}
