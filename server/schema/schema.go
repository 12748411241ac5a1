// Package schema owns the database schema shared by the account store and
// the project catalog.
package schema

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// Open opens or creates the DB and brings it up to the latest schema.
func Open(log logs.Log, config dbh.DBConfig, flags dbh.DBConnectFlags) (*gorm.DB, error) {
	return dbh.OpenDB(log, config, migrations(log, config.Driver), flags)
}

func migrations(log logs.Log, driver string) []migration.Migrator {
	// Tests run on Sqlite, production runs on Postgres
	serialPK := "BIGSERIAL PRIMARY KEY"
	if driver == dbh.DriverSqlite {
		serialPK = "INTEGER PRIMARY KEY"
	}

	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE account(
			id `+serialPK+`,
			email TEXT NOT NULL,
			login TEXT NOT NULL,
			password TEXT NOT NULL,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_token TEXT NOT NULL DEFAULT '',
			token_hash TEXT NOT NULL DEFAULT '',
			token_expires_at BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);
		CREATE UNIQUE INDEX idx_account_email ON account (email);
		CREATE UNIQUE INDEX idx_account_login ON account (login);
		CREATE INDEX idx_account_token_hash ON account (token_hash);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE project(
			id `+serialPK+`,
			account_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			description TEXT,
			created_at BIGINT NOT NULL
		);
		CREATE UNIQUE INDEX idx_project_account_name_version ON project (account_id, name, version);
		CREATE INDEX idx_project_name ON project (name);
	`))

	return migs
}
