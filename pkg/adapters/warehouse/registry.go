package warehouse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

// AdapterInfo describes a registered warehouse adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "bigquery", "postgres", "mssql"
	DisplayName string `json:"display_name"` // "BigQuery", "PostgreSQL"
	Description string `json:"description"`
}

// Factory opens a warehouse from configuration.
type Factory func(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (Warehouse, error)

// AdapterRegistration contains info + factory for one adapter type.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for a warehouse type, or nil if it is not registered.
func GetFactory(whType string) Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[whType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(whType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[whType]
	return ok
}

// Open builds the configured warehouse.
func Open(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (Warehouse, error) {
	factory := GetFactory(cfg.Type)
	if factory == nil {
		available := make([]string, 0)
		for _, info := range RegisteredAdapters() {
			available = append(available, info.Type)
		}
		return nil, fmt.Errorf("warehouse type %q (available: %s): %w",
			cfg.Type, strings.Join(available, ", "), apperrors.ErrUnsupportedType)
	}
	return factory(ctx, cfg, logger)
}

// TablesFromConfig returns the table names configured for the warehouse.
func TablesFromConfig(cfg *config.WarehouseConfig) Tables {
	return Tables{
		Sleep:    cfg.SleepTable,
		Activity: cfg.ActivityTable,
		Advice:   cfg.AdviceTable,
	}
}
