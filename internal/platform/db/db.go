package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/config"
)

const driverName = "mysql"

// DSN builds the go-sql-driver DSN for c. Times are read and written as UTC.
func DSN(c config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 3 * time.Second
	mc.ReadTimeout = 5 * time.Second
	mc.WriteTimeout = 5 * time.Second
	return mc.FormatDSN()
}

// Connect opens the pool and verifies it with a ping. The caller owns the
// returned handle and must Close it on shutdown.
func Connect(ctx context.Context, c config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, DSN(c))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	maxOpen, maxIdle := c.MaxOpen, c.MaxIdle
	if maxOpen <= 0 {
		maxOpen = 40
	}
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen / 4
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
