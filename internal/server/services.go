package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/sectools/secrules/internal/audit"
	"github.com/sectools/secrules/internal/db"
	"github.com/sectools/secrules/internal/device"
	"github.com/sectools/secrules/internal/rulestore"
)

type Services struct {
	Store   *rulestore.Store
	Exports *rulestore.ExportCache
	Device  *device.Device
	Audit   *audit.Logger

	db *sqlx.DB
}

func NewServices(config *Config) (*Services, error) {
	store := rulestore.New(rulestore.WithMaxRules(config.Store.MaxRules))

	exports, err := rulestore.NewExportCache(store)
	if err != nil {
		return nil, fmt.Errorf("create export cache: %w", err)
	}

	dev := device.New(store, exports, device.WithExportCap(config.Store.ExportCap))

	svc := &Services{
		Store:   store,
		Exports: exports,
		Device:  dev,
	}

	if config.DBPath != "" {
		database, err := db.NewSqliteDB(db.WithPath(config.DBPath))
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		auditLog, err := audit.New(database)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("create audit log: %w", err)
		}
		svc.db = database
		svc.Audit = auditLog
	} else {
		slog.Warn("audit log disabled, no db path configured")
	}

	return svc, nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close audit db: %w", err)
		}
	}
	return nil
}
