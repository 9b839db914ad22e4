package shared

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Event log action types.
const (
	ActionMNCreate       = "MN_CREATE"
	ActionMNStatusChange = "MN_STATUS_CHANGE"
	ActionMNAdminEdit    = "MN_ADMIN_EDIT"
	ActionLCPOUpdate     = "LC_PO_UPDATE"
	ActionBudgetImport   = "BUDGET_IMPORT"
	ActionBudgetUpdate   = "BUDGET_UPDATE"
	ActionBudgetClear    = "BUDGET_CLEAR"
	ActionConfigUpdate   = "CONFIG_UPDATE"
	ActionIndentCreate   = "INDENT_CREATE"
	ActionBillCreate     = "BILL_CREATE"
	ActionUserCreate     = "USER_CREATE"
	ActionUserDelete     = "USER_DELETE"
)

// Event is one append-only entry of the event log.
type Event struct {
	ID          int64     `json:"id"`
	At          time.Time `json:"timestamp"`
	Actor       string    `json:"username"`
	Action      string    `json:"action_type"`
	Description string    `json:"description"`
}

// Execer is satisfied by pgx.Tx, pgx.Conn and pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AppendEvent writes evt through db, which is normally the caller's transaction.
func AppendEvent(ctx context.Context, db Execer, evt Event) error {
	if db == nil {
		return errors.New("event log: executor not initialised")
	}
	if strings.TrimSpace(evt.Actor) == "" || evt.Action == "" {
		return errors.New("event log: actor and action required")
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `INSERT INTO event_log (occurred_at, username, action_type, description) VALUES ($1, $2, $3, $4)`,
		evt.At, evt.Actor, evt.Action, evt.Description)
	return err
}
