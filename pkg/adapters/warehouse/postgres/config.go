package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// User, password and database are URL-escaped so characters like @, / and #
// in passwords do not break URL parsing.
func buildConnectionString(cfg *config.WarehouseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort()
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.ResolvedHost(),
		port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}
