package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+ with the biometric summary tables (migrations included)",
		},
		Factory: func(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (warehouse.Warehouse, error) {
			return Open(ctx, cfg, logger)
		},
	})
}
