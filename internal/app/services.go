package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/mnledger/internal/audit"
	"github.com/odyssey-erp/mnledger/internal/costing"
	"github.com/odyssey-erp/mnledger/internal/indents"
	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/observability"
	"github.com/odyssey-erp/mnledger/internal/procurement"
	"github.com/odyssey-erp/mnledger/internal/requests"
	"github.com/odyssey-erp/mnledger/internal/users"
)

// Services is the set of domain services shared by the API, the worker and the CLI.
type Services struct {
	Costing     *costing.Service
	Ledger      *ledger.Service
	Requests    *requests.Service
	Procurement *procurement.Service
	Indents     *indents.Service
	Users       *users.Service
	Audit       *audit.Service
}

// NewServices wires repositories and services. redisClient and metrics may be nil.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	var cache *ledger.Cache
	if redisClient != nil {
		cache = ledger.NewCache(redisClient, cfg.LedgerCacheTTL)
	}
	costingService := costing.NewService(costing.NewRepository(pool), cfg.BaseCurrency)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), cache, logger)
	return &Services{
		Costing:     costingService,
		Ledger:      ledgerService,
		Requests:    requests.NewService(requests.NewRepository(pool), costingService, ledgerService, metrics),
		Procurement: procurement.NewService(procurement.NewRepository(pool), ledgerService),
		Indents:     indents.NewService(indents.NewRepository(pool), metrics),
		Users:       users.NewService(users.NewRepository(pool)),
		Audit:       audit.NewService(audit.NewRepository(pool)),
	}
}
