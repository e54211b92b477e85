package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order on startup.  Every statement is written
// as CREATE ... IF NOT EXISTS so re-running them against an existing schema
// is a no-op.  The unique keys below are load-bearing, not advisory:
//
//   - registrations.uq_reg_event_user_active enforces at most one
//     non-cancelled registration per (event, user).  The `active` column is
//     1 for live rows and NULL once cancelled; MySQL unique indexes ignore
//     NULLs, so cancelled rows never block re-registration.
//   - registrations.uq_reg_ticket_code makes ticket codes globally unique.
//   - check_ins.uq_checkin_registration caps every registration at a single
//     check-in regardless of how many scanners race.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email         VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		name          VARCHAR(255)    NOT NULL DEFAULT '',
		role          VARCHAR(32)     NOT NULL DEFAULT 'ATTENDEE',
		is_active     TINYINT(1)      NOT NULL DEFAULT 1,
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS events (
		id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		organizer_id     BIGINT UNSIGNED NOT NULL,
		title            VARCHAR(255)    NOT NULL,
		description      TEXT            NOT NULL,
		location         VARCHAR(255)    NOT NULL DEFAULT '',
		category         VARCHAR(64)     NOT NULL DEFAULT '',
		starts_at        DATETIME        NOT NULL,
		ends_at          DATETIME        NOT NULL,
		capacity         INT UNSIGNED    NOT NULL,
		registered_count INT UNSIGNED    NOT NULL DEFAULT 0,
		status           VARCHAR(16)     NOT NULL DEFAULT 'ACTIVE',
		created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_events_starts_at (starts_at),
		KEY idx_events_organizer (organizer_id),
		CONSTRAINT fk_events_organizer FOREIGN KEY (organizer_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS registrations (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		event_id      BIGINT UNSIGNED NOT NULL,
		user_id       BIGINT UNSIGNED NOT NULL,
		ticket_code   CHAR(36)        NOT NULL,
		status        VARCHAR(16)     NOT NULL DEFAULT 'confirmed',
		active        TINYINT(1)      NULL DEFAULT 1,
		registered_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		checked_in_at DATETIME        NULL,
		cancelled_at  DATETIME        NULL,
		notes         VARCHAR(512)    NOT NULL DEFAULT '',
		PRIMARY KEY (id),
		UNIQUE KEY uq_reg_ticket_code (ticket_code),
		UNIQUE KEY uq_reg_event_user_active (event_id, user_id, active),
		KEY idx_reg_user (user_id),
		KEY idx_reg_status (status),
		CONSTRAINT fk_reg_event FOREIGN KEY (event_id) REFERENCES events (id),
		CONSTRAINT fk_reg_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS check_ins (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		registration_id BIGINT UNSIGNED NOT NULL,
		event_id        BIGINT UNSIGNED NOT NULL,
		scanned_by      BIGINT UNSIGNED NOT NULL,
		scanned_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		method          VARCHAR(16)     NOT NULL DEFAULT 'qr',
		notes           VARCHAR(512)    NOT NULL DEFAULT '',
		PRIMARY KEY (id),
		UNIQUE KEY uq_checkin_registration (registration_id),
		KEY idx_checkins_event (event_id),
		KEY idx_checkins_scanned_at (scanned_at),
		CONSTRAINT fk_checkins_registration FOREIGN KEY (registration_id) REFERENCES registrations (id),
		CONSTRAINT fk_checkins_staff FOREIGN KEY (scanned_by) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema statements above.  It is safe to call on every
// startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
