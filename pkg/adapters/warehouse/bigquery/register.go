package bigquery

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "bigquery",
			DisplayName: "BigQuery",
			Description: "Google BigQuery using Application Default Credentials",
		},
		Factory: func(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (warehouse.Warehouse, error) {
			return Open(ctx, cfg, logger)
		},
	})
}
