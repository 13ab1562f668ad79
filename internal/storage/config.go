package storage

import (
	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/logging"
)

// NewDuckDBRepositoryFromConfig creates a new DuckDB repository with settings from config
func NewDuckDBRepositoryFromConfig(cfg *config.DatabaseConfig, logger *logging.Logger) (*DuckDBRepository, error) {
	return NewDuckDBRepository(cfg.Path, WithQueryTimeout(cfg.QueryTimeoutDuration()), WithLogger(logger))
}
