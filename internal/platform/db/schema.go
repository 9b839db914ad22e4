package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Schema creates every table used by the ledger. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'super', 'administrator')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS budget_heads (
	id           BIGSERIAL PRIMARY KEY,
	department   TEXT NOT NULL,
	cost_area    TEXT NOT NULL UNIQUE,
	total_budget DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (total_budget >= 0)
);

CREATE TABLE IF NOT EXISTS requests (
	id                       BIGSERIAL PRIMARY KEY,
	mn_number                TEXT NOT NULL UNIQUE,
	issue_date               DATE NOT NULL,
	logged_date              DATE NOT NULL,
	requester                TEXT NOT NULL,
	cost_area                TEXT NOT NULL,
	particulars              TEXT NOT NULL,
	category                 TEXT NOT NULL,
	department               TEXT NOT NULL,
	location                 TEXT NOT NULL,
	supplier                 TEXT NOT NULL,
	supplier_type            TEXT NOT NULL CHECK (supplier_type IN ('Local', 'Foreign')),
	currency                 TEXT NOT NULL,
	foreign_spare_cost       DOUBLE PRECISION NOT NULL DEFAULT 0,
	freight_charges          DOUBLE PRECISION NOT NULL DEFAULT 0,
	customs_duty_rate        DOUBLE PRECISION NOT NULL DEFAULT 0,
	local_cost_excl_tax      DOUBLE PRECISION NOT NULL DEFAULT 0,
	vat_tax                  DOUBLE PRECISION NOT NULL DEFAULT 0,
	landed_total_cost        DOUBLE PRECISION NOT NULL,
	status                   TEXT NOT NULL DEFAULT 'Pending',
	date_sent_to_head_office DATE NOT NULL,
	remarks                  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS requests_cost_area_idx ON requests (cost_area);

CREATE TABLE IF NOT EXISTS lc_po_tracker (
	mn_number                     TEXT PRIMARY KEY REFERENCES requests (mn_number) ON UPDATE CASCADE,
	lc_po_number                  TEXT NOT NULL DEFAULT '',
	lc_po_date                    DATE,
	eta                           DATE,
	delivery_completed            BOOLEAN NOT NULL DEFAULT FALSE,
	delivery_date                 DATE,
	remarks                       TEXT NOT NULL DEFAULT '',
	delay_days                    INTEGER,
	bill_submitted_by_vendor      TEXT NOT NULL DEFAULT '',
	bill_tracking_id              TEXT NOT NULL DEFAULT '',
	bill_submitted_to_accounts    DATE,
	bill_submitted_to_head_office DATE,
	bill_paid                     BOOLEAN NOT NULL DEFAULT FALSE,
	actual_cost                   DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at                    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS standalone_indents (
	indent_id        BIGSERIAL PRIMARY KEY,
	indent_number    TEXT NOT NULL,
	item_description TEXT NOT NULL,
	quantity         DOUBLE PRECISION NOT NULL,
	unit             TEXT NOT NULL,
	rate             DOUBLE PRECISION NOT NULL,
	total_amount     DOUBLE PRECISION NOT NULL,
	indent_date      DATE NOT NULL,
	supplier         TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'Not Purchased' CHECK (status IN ('Not Purchased', 'Purchased'))
);
CREATE INDEX IF NOT EXISTS standalone_indents_status_idx ON standalone_indents (status);

CREATE TABLE IF NOT EXISTS purchase_bills (
	bill_no           TEXT PRIMARY KEY,
	indent_no_summary TEXT NOT NULL,
	grn_no            TEXT NOT NULL DEFAULT '',
	supplier          TEXT NOT NULL,
	bill_date         DATE NOT NULL,
	payment_mode      TEXT NOT NULL,
	total_bill_amount DOUBLE PRECISION NOT NULL,
	remarks           TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchase_bill_lines (
	id          BIGSERIAL PRIMARY KEY,
	bill_no     TEXT NOT NULL REFERENCES purchase_bills (bill_no),
	indent_id   BIGINT NOT NULL REFERENCES standalone_indents (indent_id),
	description TEXT NOT NULL,
	quantity    DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL,
	rate        DOUBLE PRECISION NOT NULL,
	amount      DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
	id          BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	username    TEXT NOT NULL,
	action_type TEXT NOT NULL,
	description TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS event_log_occurred_at_idx ON event_log (occurred_at DESC);

CREATE TABLE IF NOT EXISTS exchange_config (
	key   TEXT PRIMARY KEY,
	value DOUBLE PRECISION NOT NULL
);

INSERT INTO exchange_config (key, value) VALUES
	('USD_rate', 110.00),
	('EUR_rate', 120.00),
	('GBP_rate', 130.00),
	('INR_rate', 1.50),
	('OTHER_rate', 100.00),
	('CustomsDuty_pct', 0.05)
ON CONFLICT (key) DO NOTHING;
`

// Migrate applies Schema in a single transaction.
func Migrate(ctx context.Context, pool Beginner) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, Schema); err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
		return nil
	})
}
