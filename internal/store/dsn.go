package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// WithDBName returns dsn pointing at database instead, so one server can hold
// rides for several riders or seasons. A DSN without a scheme is read as
// postgres://.
func WithDBName(dsn, database string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", errors.New("empty DSN")
	}
	database = strings.TrimPrefix(strings.TrimSpace(database), "/")
	if database == "" {
		return "", errors.New("empty database name")
	}
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("parse dsn: unsupported scheme %q", u.Scheme)
	}
	u.Path = "/" + database
	return u.String(), nil
}
