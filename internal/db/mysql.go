// ABOUTME: Relational-server backend: pooled MySQL connection via go-sql-driver/mysql
// ABOUTME: Builds the DSN from discrete parameters and fails fast on an unreachable server

package db

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQLOptions are the standard connection parameters for the relational backend.
type MySQLOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	PoolSize int
}

// withDefaults fills unset fields.
func (o MySQLOptions) withDefaults() MySQLOptions {
	if o.Host == "" {
		o.Host = "localhost"
	}
	if o.Port == 0 {
		o.Port = 3306
	}
	if o.User == "" {
		o.User = "root"
	}
	if o.Database == "" {
		o.Database = "wedding_horoscope"
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 10
	}
	return o
}

// DSN returns the go-sql-driver/mysql data source name.
func (o MySQLOptions) DSN() string {
	o = o.withDefaults()
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	cfg.DBName = o.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// openMySQL creates the pool. database/sql queues callers without bound once
// PoolSize connections are checked out.
func openMySQL(ctx context.Context, o MySQLOptions) (*sqlx.DB, error) {
	o = o.withDefaults()

	conn, err := sqlx.Open("mysql", o.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mysql pool: %w", err)
	}
	conn.SetMaxOpenConns(o.PoolSize)
	conn.SetMaxIdleConns(o.PoolSize)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to mysql at %s:%d: %w", o.Host, o.Port, err)
	}
	return conn, nil
}
