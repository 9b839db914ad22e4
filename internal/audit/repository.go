package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// PGRepository reads event_log from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListEvents returns matching events, newest first.
func (r *PGRepository) ListEvents(ctx context.Context, q Query) ([]shared.Event, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !q.From.IsZero() {
		add("occurred_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("occurred_at < $%d", q.To)
	}
	if q.Actor != "" {
		add("username = $%d", q.Actor)
	}
	if q.Action != "" {
		add("action_type = $%d", q.Action)
	}
	sql := `SELECT id, occurred_at, username, action_type, description FROM event_log`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY occurred_at DESC, id DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.Event
	for rows.Next() {
		var evt shared.Event
		if err := rows.Scan(&evt.ID, &evt.At, &evt.Actor, &evt.Action, &evt.Description); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
