package container

import (
	"fmt"

	"github.com/pocketbase/dbx"

	"github.com/kxshrx/flynch/internal/config"
)

// InitializeServices initializes the service container with all dependencies
func InitializeServices(cfg config.Config, db *dbx.DB, version string) (Container, error) {
	container := NewContainer()

	// Register all services
	if err := RegisterServices(container, cfg, db, version); err != nil {
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	return container, nil
}
