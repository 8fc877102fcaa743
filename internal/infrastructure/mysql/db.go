package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"auction-tracker/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects using cfg.DSN and pings before returning. The DSN should carry
// parseTime=true so DATETIME columns scan into time.Time.
func Open(ctx context.Context, cfg config.MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
