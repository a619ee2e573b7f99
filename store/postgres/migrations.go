package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Escrow store.
var Migrations = migrate.NewGroup("escrow")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_escrow_caregivers",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_caregivers (
    account_id     TEXT PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    phone          TEXT NOT NULL DEFAULT '',
    submission_ref TEXT NOT NULL DEFAULT '',
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_escrow_caregivers_email ON escrow_caregivers (email);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_caregivers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_payments",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_payments (
    id               TEXT PRIMARY KEY,
    customer_name    TEXT NOT NULL DEFAULT '',
    customer_email   TEXT NOT NULL DEFAULT '',
    customer_phone   TEXT NOT NULL DEFAULT '',
    caregiver_id     TEXT NOT NULL DEFAULT '',
    total_amount     BIGINT NOT NULL DEFAULT 0,
    currency         TEXT NOT NULL DEFAULT 'eur',
    caregiver_amount BIGINT NOT NULL DEFAULT 0,
    platform_amount  BIGINT NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'pending',
    payout_ref       TEXT NOT NULL DEFAULT '',
    paid_out_at      TIMESTAMPTZ,
    disputed_at      TIMESTAMPTZ,
    failed_at        TIMESTAMPTZ,
    last_error       TEXT NOT NULL DEFAULT '',
    prompted_at      TIMESTAMPTZ,
    release_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    metadata         JSONB NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_escrow_payments_status ON escrow_payments (status, created_at);
CREATE INDEX IF NOT EXISTS idx_escrow_payments_caregiver ON escrow_payments (caregiver_id);
CREATE INDEX IF NOT EXISTS idx_escrow_payments_email ON escrow_payments (status, customer_email);
CREATE INDEX IF NOT EXISTS idx_escrow_payments_phone ON escrow_payments (status, customer_phone);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_payments`)
				return err
			},
		},
	)
}
