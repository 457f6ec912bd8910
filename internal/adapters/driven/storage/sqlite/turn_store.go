package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// turnStore implements driven.TurnStore over the conversations table.
type turnStore struct {
	store *Store
}

var _ driven.TurnStore = (*turnStore)(nil)

// Append stores a turn. A zero timestamp is replaced by the store clock.
func (s *turnStore) Append(ctx context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error) {
	if err := turn.Validate(); err != nil {
		return domain.ConversationTurn{}, err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.store.now()
	}
	turn.Timestamp = turn.Timestamp.UTC()

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (scope, role, content, timestamp)
		VALUES (?, ?, ?, ?)
	`, turn.Scope, string(turn.Role), turn.Content, formatTime(turn.Timestamp))
	if err != nil {
		return domain.ConversationTurn{}, fmt.Errorf("inserting turn: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.ConversationTurn{}, fmt.Errorf("reading turn id: %w", err)
	}
	turn.ID = id
	return turn, nil
}

// Since returns turns of scope strictly after since, oldest first.
func (s *turnStore) Since(ctx context.Context, scope string, since time.Time) ([]domain.ConversationTurn, error) {
	return s.query(ctx, `
		SELECT id, scope, role, content, timestamp FROM conversations
		WHERE scope = ? AND timestamp > ?
		ORDER BY timestamp, id
	`, scope, formatTime(since))
}

// Recent returns the newest n turns of scope, oldest first.
func (s *turnStore) Recent(ctx context.Context, scope string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	return s.query(ctx, `
		SELECT id, scope, role, content, timestamp FROM (
			SELECT id, scope, role, content, timestamp FROM conversations
			WHERE scope = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp, id
	`, scope, n)
}

// Scopes lists every scope with at least one turn.
func (s *turnStore) Scopes(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT DISTINCT scope FROM conversations ORDER BY scope")
	if err != nil {
		return nil, fmt.Errorf("querying scopes: %w", err)
	}
	defer rows.Close()

	scopes := []string{}
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("scanning scope: %w", err)
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scopes: %w", err)
	}
	return scopes, nil
}

func (s *turnStore) query(ctx context.Context, query string, args ...any) ([]domain.ConversationTurn, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	turns := []domain.ConversationTurn{}
	for rows.Next() {
		var turn domain.ConversationTurn
		var role, ts string
		if err := rows.Scan(&turn.ID, &turn.Scope, &role, &turn.Content, &ts); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Role = domain.Role(role)
		turn.Timestamp = parseTime(ts)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}
