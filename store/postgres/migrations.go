package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the keep store (PostgreSQL).
var Migrations = migrate.NewGroup("keep")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_documents",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keep_documents (
    collection      TEXT NOT NULL,
    id              TEXT NOT NULL,
    partition_key   TEXT NOT NULL DEFAULT '',
    document_type   TEXT NOT NULL,
    version         BIGINT NOT NULL DEFAULT 0,
    body            JSONB NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_keep_documents_type ON keep_documents (collection, document_type);
CREATE INDEX IF NOT EXISTS idx_keep_documents_created ON keep_documents (collection, created_at);
CREATE INDEX IF NOT EXISTS idx_keep_documents_body ON keep_documents USING GIN (body jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_keep_documents_user_name ON keep_documents (collection, (body ->> 'normalizedUserName'));
CREATE INDEX IF NOT EXISTS idx_keep_documents_email ON keep_documents (collection, (body ->> 'normalizedEmail'));
CREATE INDEX IF NOT EXISTS idx_keep_documents_role_name ON keep_documents (collection, (body ->> 'normalizedName'));
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keep_documents`)
				return err
			},
		},
	)
}
