package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Galera reads wsrep status variables from a MariaDB/MySQL Galera node.
type Galera struct {
	db *sql.DB
}

// OpenGalera opens a connection pool for dsn. The pool connects lazily, so an
// unreachable node surfaces as a query error during the round.
func OpenGalera(dsn string, timeout time.Duration) (*Galera, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse cluster dsn: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = timeout
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)
	return &Galera{db: db}, nil
}

// GetStatus implements cluster.StatusQuery.
func (g *Galera) GetStatus(ctx context.Context, key string) (string, error) {
	var name, value string
	err := g.db.QueryRowContext(ctx, "SHOW GLOBAL STATUS LIKE ?", key).Scan(&name, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("status variable %s not reported (is this a Galera node?)", key)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Close releases the pool.
func (g *Galera) Close() error {
	return g.db.Close()
}
