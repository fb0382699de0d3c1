package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS notes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID,
		content TEXT NOT NULL CHECK (length(btrim(content)) > 0),
		position JSONB NOT NULL,
		location_info JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes (created_at);`,
	`CREATE TABLE IF NOT EXISTS parcels (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID,
		il VARCHAR(100) NOT NULL,
		ilce VARCHAR(100) NOT NULL,
		mahalle VARCHAR(255) NOT NULL,
		ada VARCHAR(50) NOT NULL,
		parsel VARCHAR(50),
		geometry JSONB NOT NULL,
		center JSONB NOT NULL,
		notes JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_parcels_user_id ON parcels (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_parcels_location ON parcels (il, ilce, mahalle, ada, parsel);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	// notes.updated_at is written only by an explicit edit, so no trigger there.
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_parcels_updated_at') THEN
			CREATE TRIGGER trg_parcels_updated_at
				BEFORE UPDATE ON parcels
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
