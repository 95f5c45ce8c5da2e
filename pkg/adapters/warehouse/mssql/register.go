package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "mssql",
			DisplayName: "SQL Server",
			Description: "Microsoft SQL Server 2016+ and Azure SQL with SQL authentication",
		},
		Factory: func(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (warehouse.Warehouse, error) {
			return Open(ctx, cfg, logger)
		},
	})
}
