package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"shop-service/config"
	"shop-service/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects to MySQL and waits for it to answer a ping.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	for i := 1; i <= connectAttempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			log.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)
			return db, nil
		}
		log.Warn("database ping failed", "attempt", i, "max", connectAttempts, "error", err)

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}

	db.Close()
	return nil, fmt.Errorf("connect to database after %d attempts: %w", connectAttempts, err)
}

var schema = []struct {
	table string
	ddl   string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100) NULL,
			last_name VARCHAR(100) NULL,
			role VARCHAR(16) NOT NULL DEFAULT 'USER',
			refresh_id VARCHAR(64) NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email)
		)`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description VARCHAR(255) NULL,
			slug VARCHAR(100) NOT NULL,
			image_url VARCHAR(255) NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_categories_slug (slug)
		)`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			description TEXT NULL,
			sku VARCHAR(50) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			stock INT NOT NULL DEFAULT 0,
			image_url VARCHAR(255) NULL,
			category_id CHAR(36) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_products_sku (sku),
			INDEX idx_products_category (category_id),
			CONSTRAINT chk_products_stock CHECK (stock >= 0),
			FOREIGN KEY (category_id) REFERENCES categories(id)
		)`},
	{"carts", `
		CREATE TABLE IF NOT EXISTS carts (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			checked_out BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_carts_user (user_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
			total_amount DECIMAL(12,2) NOT NULL,
			shipping_address VARCHAR(500) NOT NULL DEFAULT '',
			tracking_number VARCHAR(100) NULL,
			notes TEXT NULL,
			cart_id CHAR(36) NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_orders_user (user_id),
			INDEX idx_orders_status (status),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT
		)`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id CHAR(36) PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			product_id CHAR(36) NOT NULL,
			quantity INT NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			INDEX idx_order_items_order (order_id),
			INDEX idx_order_items_product (product_id),
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id)
		)`},
	{"payments", `
		CREATE TABLE IF NOT EXISTS payments (
			id CHAR(36) PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			user_id CHAR(36) NOT NULL,
			amount DECIMAL(12,2) NOT NULL,
			currency CHAR(3) NOT NULL DEFAULT 'usd',
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
			payment_method VARCHAR(32) NULL,
			transaction_id VARCHAR(255) NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_payments_order (order_id),
			INDEX idx_payments_transaction (transaction_id),
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		)`},
}

// InitSchema creates any missing tables. Tables are created in dependency order.
func InitSchema(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", t.table, err)
		}
		log.Debug("table ready", "table", t.table)
	}
	log.Info("database schema ready", "tables", len(schema))
	return nil
}
