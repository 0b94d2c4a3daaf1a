package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Open builds the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	dsn = strings.TrimSpace(dsn)

	switch driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("%s store requires a dsn", driver)
		}
		return OpenSQL(driver, dsn)
	case DriverRedis:
		if dsn == "" {
			return nil, fmt.Errorf("redis store requires an address")
		}
		return OpenRedis(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}
