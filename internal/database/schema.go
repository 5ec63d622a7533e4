package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schema is written once for both dialects; dialect-specific fragments
// are substituted by Migrate.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	){{table}}`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id {{pk}},
		user_id {{ref}} NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	){{table}}`,
	`CREATE TABLE IF NOT EXISTS service_categories (
		id {{pk}},
		name VARCHAR(100) NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT TRUE
	){{table}}`,
	`CREATE TABLE IF NOT EXISTS providers (
		id {{pk}},
		user_id {{ref}} NOT NULL UNIQUE,
		company_name VARCHAR(100) NOT NULL DEFAULT '',
		address VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(20) NOT NULL DEFAULT '',
		photo VARCHAR(255) NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	){{table}}`,
	`CREATE TABLE IF NOT EXISTS service_listings (
		id {{pk}},
		provider_id {{ref}} NOT NULL,
		category_id {{ref}} NULL,
		name VARCHAR(100) NOT NULL,
		description TEXT NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		address VARCHAR(255) NOT NULL DEFAULT '',
		image VARCHAR(255) NULL,
		FOREIGN KEY (provider_id) REFERENCES providers(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES service_categories(id) ON DELETE RESTRICT
	){{table}}`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id {{pk}},
		listing_id {{ref}} NOT NULL,
		customer_name VARCHAR(120) NOT NULL,
		rating SMALLINT NOT NULL,
		comment TEXT NOT NULL,
		visible BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (listing_id) REFERENCES service_listings(id) ON DELETE CASCADE
	){{table}}`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id {{pk}},
		listing_id {{ref}} NOT NULL,
		customer_name VARCHAR(120) NOT NULL,
		customer_phone VARCHAR(20) NOT NULL,
		description TEXT NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'En attente',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (listing_id) REFERENCES service_listings(id) ON DELETE CASCADE
	){{table}}`,
}

var dialects = map[string]*strings.Replacer{
	"mysql": strings.NewReplacer(
		"{{pk}}", "BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY",
		"{{ref}}", "BIGINT UNSIGNED",
		"{{table}}", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	),
	"sqlite": strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ref}}", "INTEGER",
		"{{table}}", "",
	),
}

// Migrate creates any missing table. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	r, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
