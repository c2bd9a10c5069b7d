package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"noticiero/internal/services"
)

const noticieroColumns = "id, title, guion, state, publication_date, created_at, updated_at"

const defaultListLimit = 100

func scanNoticiero(scanner interface{ Scan(dest ...any) error }) (*Noticiero, error) {
	var (
		n                                    Noticiero
		state                                string
		publishedRaw, createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&n.ID, &n.Title, &n.Guion, &state, &publishedRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	n.State = State(state)
	n.PublicationDate = parseTime(publishedRaw)
	n.CreatedAt = parseTime(createdRaw)
	n.UpdatedAt = parseTime(updatedRaw)
	return &n, nil
}

// CreateNoticiero inserts n, assigning an ID and timestamps when missing.
func (s *Store) CreateNoticiero(ctx context.Context, n *Noticiero) error {
	if n == nil {
		return errors.New("noticiero is nil")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.State == "" {
		n.State = StatePending
	}
	now := time.Now().UTC()
	if n.PublicationDate.IsZero() {
		n.PublicationDate = now
	}
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err := s.execWithRetry(ctx,
		`INSERT INTO noticieros (`+noticieroColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Guion, string(n.State),
		formatTime(n.PublicationDate), formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert noticiero: %w", err)
	}
	return nil
}

// GetNoticiero returns the noticiero with id or an error marked ErrNotFound.
func (s *Store) GetNoticiero(ctx context.Context, id string) (*Noticiero, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+noticieroColumns+` FROM noticieros WHERE id = ?`, id)
	n, err := scanNoticiero(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get noticiero", "no noticiero with id "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get noticiero: %w", err)
	}
	return n, nil
}

// ListNoticieros returns noticieros newest first.
func (s *Store) ListNoticieros(ctx context.Context, filter ListFilter) ([]*Noticiero, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := sq.Select(noticieroColumns).
		From("noticieros").
		OrderBy("publication_date DESC", "created_at DESC").
		Limit(uint64(limit))
	if filter.State != "" {
		query = query.Where(sq.Eq{"state": string(filter.State)})
	}
	return s.queryNoticieros(ctx, query)
}

// LatestPublished returns the most recent PUBLISHED noticiero.
func (s *Store) LatestPublished(ctx context.Context) (*Noticiero, error) {
	items, err := s.ListNoticieros(ctx, ListFilter{State: StatePublished, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "latest noticiero", "no published noticiero", nil)
	}
	return items[0], nil
}

// CountByState returns how many noticieros are in each state.
func (s *Store) CountByState(ctx context.Context) (map[State]int, error) {
	sqlText, args, err := sq.Select("state", "COUNT(1)").From("noticieros").GroupBy("state").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("count noticieros: %w", err)
	}
	defer rows.Close()

	counts := map[State]int{StatePending: 0, StatePublished: 0, StateRejected: 0}
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[State(state)] = count
	}
	return counts, rows.Err()
}

// TransitionNoticiero moves a noticiero from one state to another. The update
// only applies when the row is still in from; otherwise the error is marked
// ErrNotFound or ErrInvalidTransition.
func (s *Store) TransitionNoticiero(ctx context.Context, id string, from, to State) (*Noticiero, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE noticieros SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(to), formatTime(time.Now()), id, string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("transition noticiero: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition rows affected: %w", err)
	}
	current, err := s.GetNoticiero(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		reason := fmt.Sprintf("noticiero %s is %s, expected %s", id, current.State, from)
		if current.State.Terminal() {
			reason = fmt.Sprintf("noticiero %s is already %s", id, current.State)
		}
		return current, services.Wrap(services.ErrInvalidTransition, "store", "transition noticiero", reason, nil)
	}
	return current, nil
}

// DeleteNoticiero removes a noticiero and returns the deleted row.
func (s *Store) DeleteNoticiero(ctx context.Context, id string) (*Noticiero, error) {
	current, err := s.GetNoticiero(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.execWithRetry(ctx, `DELETE FROM noticieros WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete noticiero: %w", err)
	}
	return current, nil
}

func (s *Store) queryNoticieros(ctx context.Context, query sq.SelectBuilder) ([]*Noticiero, error) {
	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build noticiero query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list noticieros: %w", err)
	}
	defer rows.Close()

	var out []*Noticiero
	for rows.Next() {
		n, err := scanNoticiero(rows)
		if err != nil {
			return nil, fmt.Errorf("scan noticiero: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate noticieros: %w", err)
	}
	return out, nil
}
