package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// schema lists the DDL statements for every table, parents first so that
// foreign keys resolve.  Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username               VARCHAR(64)  NOT NULL,
		password_hash          VARCHAR(255) NOT NULL,
		phone_number           VARCHAR(32)  NOT NULL,
		roll_number            VARCHAR(32)  NOT NULL,
		giving_rating          DOUBLE       NOT NULL DEFAULT 5.0,
		accepting_rating       DOUBLE       NOT NULL DEFAULT 5.0,
		giving_rating_count    INT UNSIGNED NOT NULL DEFAULT 0,
		accepting_rating_count INT UNSIGNED NOT NULL DEFAULT 0,
		trophies_given         INT UNSIGNED NOT NULL DEFAULT 0,
		trophies_accepted      INT UNSIGNED NOT NULL DEFAULT 0,
		created_at             DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_phone (phone_number),
		UNIQUE KEY uq_users_roll (roll_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tasks (
		task_id     BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		giver_id    BIGINT UNSIGNED NOT NULL,
		acceptor_id BIGINT UNSIGNED NULL,
		title       VARCHAR(200) NOT NULL,
		description TEXT         NOT NULL,
		reward      VARCHAR(200) NOT NULL,
		deadline    DATETIME     NOT NULL,
		status      ENUM('OPEN','IN_PROGRESS','COMPLETED','CANCELLED') NOT NULL DEFAULT 'OPEN',
		created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tasks_status_deadline (status, deadline),
		CONSTRAINT fk_tasks_giver FOREIGN KEY (giver_id) REFERENCES users (user_id),
		CONSTRAINT fk_tasks_acceptor FOREIGN KEY (acceptor_id) REFERENCES users (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS task_applications (
		application_id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		task_id        BIGINT UNSIGNED NOT NULL,
		applicant_id   BIGINT UNSIGNED NOT NULL,
		status         ENUM('PENDING','ACCEPTED','REJECTED','WITHDRAWN','REMOVED') NOT NULL DEFAULT 'PENDING',
		applied_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_application_task_applicant (task_id, applicant_id),
		CONSTRAINT fk_app_task FOREIGN KEY (task_id) REFERENCES tasks (task_id) ON DELETE CASCADE,
		CONSTRAINT fk_app_user FOREIGN KEY (applicant_id) REFERENCES users (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ratings (
		rating_id    BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		task_id      BIGINT UNSIGNED NOT NULL,
		rater_id     BIGINT UNSIGNED NOT NULL,
		rated_id     BIGINT UNSIGNED NOT NULL,
		rating_value TINYINT UNSIGNED NOT NULL,
		rating_type  ENUM('GIVING','ACCEPTING') NOT NULL,
		comment      TEXT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_rating_task_rater (task_id, rater_id),
		KEY idx_ratings_rated_type (rated_id, rating_type),
		CONSTRAINT chk_rating_value CHECK (rating_value BETWEEN 1 AND 5),
		CONSTRAINT fk_rating_task FOREIGN KEY (task_id) REFERENCES tasks (task_id),
		CONSTRAINT fk_rating_rater FOREIGN KEY (rater_id) REFERENCES users (user_id),
		CONSTRAINT fk_rating_rated FOREIGN KEY (rated_id) REFERENCES users (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS task_comments (
		comment_id        BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		task_id           BIGINT UNSIGNED NOT NULL,
		user_id           BIGINT UNSIGNED NOT NULL,
		parent_comment_id BIGINT UNSIGNED NULL,
		comment_text      TEXT       NULL,
		is_system         TINYINT(1) NOT NULL DEFAULT 0,
		created_at        DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_comments_task_created (task_id, created_at),
		CONSTRAINT fk_comment_task FOREIGN KEY (task_id) REFERENCES tasks (task_id) ON DELETE CASCADE,
		CONSTRAINT fk_comment_user FOREIGN KEY (user_id) REFERENCES users (user_id),
		CONSTRAINT fk_comment_parent FOREIGN KEY (parent_comment_id) REFERENCES task_comments (comment_id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  Each statement runs on its own
// because MySQL commits DDL implicitly.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("schema migrated")
	return nil
}
