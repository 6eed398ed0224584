package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/config"
)

// Connect opens a postgres pool and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	dsn, err := SessionDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// SessionDSN folds the time zone and client encoding into the DSN. lib/pq
// sends unrecognised keys as startup parameters, so every pooled
// connection starts with the same session settings.
func SessionDSN(cfg config.DBConfig) (string, error) {
	params := [][2]string{}
	if cfg.TimeZone != "" {
		params = append(params, [2]string{"timezone", cfg.TimeZone})
	}
	if cfg.ClientEncoding != "" {
		params = append(params, [2]string{"client_encoding", cfg.ClientEncoding})
	}
	if len(params) == 0 {
		return cfg.DSN, nil
	}

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		u, err := url.Parse(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse DATABASE_URL: %w", err)
		}
		q := u.Query()
		for _, p := range params {
			q.Set(p[0], p[1])
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(cfg.DSN))
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p[0] + "=" + quoteValue(p[1]))
	}
	return b.String(), nil
}

// quoteValue quotes a key/value DSN value the way lib/pq parses it.
func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Ping reports whether the database answers within timeout.
func Ping(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(ctx)
}
