package database

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/lulgamer69/event-ticket-system/internal/model"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS registrations (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		child_roll     VARCHAR(64)  NOT NULL,
		child_name     VARCHAR(255) NOT NULL,
		class_section  VARCHAR(64)  NOT NULL,
		guest1_name    VARCHAR(255) NOT NULL,
		guest2_name    VARCHAR(255) NOT NULL DEFAULT '',
		guest3_name    VARCHAR(255) NOT NULL DEFAULT '',
		phone          VARCHAR(32)  NOT NULL,
		email          VARCHAR(255) NOT NULL DEFAULT '',
		pass_count     INT UNSIGNED NOT NULL,
		total_people   INT UNSIGNED NOT NULL,
		amount_paid    BIGINT       NOT NULL DEFAULT 0,
		payment_status VARCHAR(32)  NOT NULL,
		payment_ref    VARCHAR(128) NULL,
		proof_path     VARCHAR(512) NULL,
		ticket_number  VARCHAR(64)  NOT NULL,
		attended       TINYINT(1)   NOT NULL DEFAULT 0,
		attended_at    DATETIME     NULL,
		created_at     DATETIME     NOT NULL,
		updated_at     DATETIME     NOT NULL,
		UNIQUE KEY uq_registrations_child_roll (child_roll),
		UNIQUE KEY uq_registrations_ticket_number (ticket_number),
		KEY idx_registrations_payment_status (payment_status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS registrations (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		child_roll     TEXT     NOT NULL,
		child_name     TEXT     NOT NULL,
		class_section  TEXT     NOT NULL,
		guest1_name    TEXT     NOT NULL,
		guest2_name    TEXT     NOT NULL DEFAULT '',
		guest3_name    TEXT     NOT NULL DEFAULT '',
		phone          TEXT     NOT NULL,
		email          TEXT     NOT NULL DEFAULT '',
		pass_count     INTEGER  NOT NULL,
		total_people   INTEGER  NOT NULL,
		amount_paid    INTEGER  NOT NULL DEFAULT 0,
		payment_status TEXT     NOT NULL,
		payment_ref    TEXT     NULL,
		proof_path     TEXT     NULL,
		ticket_number  TEXT     NOT NULL,
		attended       INTEGER  NOT NULL DEFAULT 0,
		attended_at    DATETIME NULL,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL,
		CONSTRAINT uq_registrations_child_roll UNIQUE (child_roll),
		CONSTRAINT uq_registrations_ticket_number UNIQUE (ticket_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_payment_status ON registrations (payment_status)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT     NOT NULL UNIQUE,
		password_hash TEXT     NOT NULL,
		role          TEXT     NOT NULL,
		is_active     INTEGER  NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER  NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		token_hash TEXT     NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,
}

// Migrate creates the raw SQL tables for the given driver.  Statements are
// idempotent so it runs on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = mysqlSchema
	case "sqlite3":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// MigrateOutbox creates the outbound_messages table from its gorm model.
func MigrateOutbox(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&model.OutboundMessage{})
}
