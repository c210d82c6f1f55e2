package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarketd/internal/bank"
	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/tx"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/history"
	"github.com/LeJamon/goMarketd/internal/logging"
	"github.com/LeJamon/goMarketd/internal/registry"
	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/LeJamon/goMarketd/internal/storage"
)

// Provider registers every marketd service in a container and knows
// how to bring the resolved graph online.
type Provider struct {
	container *Container
	config    *config.Config

	// fresh is set by the ledger builder: true when the store held no
	// state and this boot starts from genesis.
	fresh bool
}

// NewProvider creates a provider for the given container and config.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{container: container, config: cfg}
}

// RegisterAll registers the config and all service builders. Nothing
// is constructed until first use.
func (p *Provider) RegisterAll() error {
	p.container.Register(ServiceConfig, p.config)
	p.registerInfraBuilders()
	p.registerStateBuilders()
	p.registerRPCBuilders()
	return nil
}

// Activate resolves the transaction engine and publishes the service
// container the RPC handlers read. Must run before the server accepts
// requests.
func (p *Provider) Activate() error {
	engine, err := Engine(p.container)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	services := &rpc.ServiceContainer{Market: engine}
	if hist, err := HistoryStore(p.container); err != nil {
		return fmt.Errorf("failed to build history store: %w", err)
	} else if hist != nil {
		services.History = hist
	}
	rpc.Services = services
	return nil
}

// registerInfraBuilders registers the logger and the checkpoint store.
func (p *Provider) registerInfraBuilders() {
	p.container.RegisterBuilder(ServiceLogger, func(c *Container) (interface{}, error) {
		return logging.New(p.config.Log.Level, p.config.Log.Format)
	})

	p.container.RegisterBuilder(ServiceStore, func(c *Container) (interface{}, error) {
		s := p.config.Storage
		return storage.Open(&storage.Config{
			Backend:          s.Backend,
			Path:             s.Path,
			CacheSize:        s.CacheSize,
			Compressor:       s.Compressor,
			CompressionLevel: s.CompressionLevel,
			SyncWrites:       s.SyncWrites,
			CreateIfMissing:  true,
		})
	})

	p.container.RegisterBuilder(ServiceHistory, func(c *Container) (interface{}, error) {
		h := p.config.History
		if !h.Enabled {
			return nil, nil
		}
		logger, err := Logger(c)
		if err != nil {
			return nil, err
		}
		store, err := history.NewSQLStore(&history.Config{
			Driver:          h.Driver,
			DSN:             h.DSN,
			MaxOpenConns:    h.MaxOpenConns,
			MaxIdleConns:    h.MaxIdleConns,
			ConnMaxLifetime: h.ConnMaxLifetime,
			QueryTimeout:    h.QueryTimeout,
		}, logger.Named("history"))
		if err != nil {
			return nil, err
		}
		if err := store.Open(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	})
}

// registerStateBuilders registers the restored ledger, bank, registry,
// and the engine on top of them.
func (p *Provider) registerStateBuilders() {
	p.container.RegisterBuilder(ServiceLedger, func(c *Container) (interface{}, error) {
		store, err := Store(c)
		if err != nil {
			return nil, err
		}
		entries, err := store.LoadEntries()
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted state: %w", err)
		}
		ledger := state.NewLedger()
		ledger.Restore(entries)
		p.fresh = len(entries) == 0
		return ledger, nil
	})

	p.container.RegisterBuilder(ServiceBank, func(c *Container) (interface{}, error) {
		// Resolving the ledger first settles whether this boot starts
		// from genesis or from a checkpoint.
		if _, err := c.Get(ServiceLedger); err != nil {
			return nil, err
		}
		b := bank.NewMemoryBank()
		if p.fresh {
			for _, g := range p.config.Market.Genesis {
				if err := b.Fund(types.Address(g.Account), types.Amount(g.Amount)); err != nil {
					return nil, fmt.Errorf("failed to fund genesis account %s: %w", g.Account, err)
				}
			}
			return b, nil
		}
		store, err := Store(c)
		if err != nil {
			return nil, err
		}
		balances, err := store.LoadBalances()
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted balances: %w", err)
		}
		b.Restore(balances)
		return b, nil
	})

	p.container.RegisterBuilder(ServiceRegistry, func(c *Container) (interface{}, error) {
		ledgerSvc, err := c.Get(ServiceLedger)
		if err != nil {
			return nil, err
		}
		ledger := ledgerSvc.(*state.Ledger)

		r := registry.NewMemoryRegistry()
		if p.fresh {
			ctx := context.Background()
			for _, g := range p.config.Market.Genesis {
				for i := 0; i < g.Tokens; i++ {
					if _, err := r.Mint(ctx, types.Address(g.Account)); err != nil {
						return nil, fmt.Errorf("failed to mint genesis token for %s: %w", g.Account, err)
					}
				}
			}
			return r, nil
		}

		// The registry is external to the marketplace and keeps no
		// checkpoint of its own. Reseed what the market state proves:
		// every listed token is owned by its seller. Ownership of
		// unlisted tokens belongs to whatever system backs Registry in
		// a real deployment.
		owners := make(map[types.TokenID]types.Address)
		for _, listing := range ledger.Listings() {
			owners[listing.TokenID] = listing.Seller
		}
		r.Restore(owners)
		return r, nil
	})

	p.container.RegisterBuilder(ServiceEngine, func(c *Container) (interface{}, error) {
		logger, err := Logger(c)
		if err != nil {
			return nil, err
		}
		ledgerSvc, err := c.Get(ServiceLedger)
		if err != nil {
			return nil, err
		}
		ledger := ledgerSvc.(*state.Ledger)
		bankSvc, err := c.Get(ServiceBank)
		if err != nil {
			return nil, err
		}
		registrySvc, err := c.Get(ServiceRegistry)
		if err != nil {
			return nil, err
		}
		store, err := Store(c)
		if err != nil {
			return nil, err
		}

		mk := p.config.Market
		engineCfg := tx.EngineConfig{
			Operator:   types.Address(mk.Operator),
			MaxPrice:   types.Amount(mk.MaxPrice),
			MaxFee:     types.Amount(mk.MaxFee),
			InitialFee: types.Amount(mk.InitialFee),
		}

		memBank := bankSvc.(*bank.MemoryBank)
		opts := []tx.Option{
			tx.WithLogger(logger.Named("engine")),
			tx.WithCommitHook(p.persistHook(store, memBank, logger)),
		}

		if publisher, err := Publisher(c); err != nil {
			return nil, err
		} else if publisher != nil {
			opts = append(opts, tx.WithPublisher(publisher))
		}

		if hist, err := HistoryStore(c); err != nil {
			return nil, err
		} else if hist != nil {
			opts = append(opts, tx.WithArchiver(history.NewArchiver(hist)))
		}

		reg := registrySvc.(*registry.MemoryRegistry)
		engine := tx.NewEngine(ledger, reg, memBank, engineCfg, opts...)

		// Externally transferred tokens invalidate their listings.
		reg.RegisterTransferHook(engine.OnOwnershipChanged)
		return engine, nil
	})
}

// registerRPCBuilders registers the JSON-RPC server, the WebSocket
// server, and the publisher that feeds subscribers.
func (p *Provider) registerRPCBuilders() {
	p.container.RegisterBuilder(ServiceRPC, func(c *Container) (interface{}, error) {
		logger, err := Logger(c)
		if err != nil {
			return nil, err
		}
		return rpc.NewServer(logger.Named("rpc"), p.config.Server.AdminIPs...), nil
	})

	p.container.RegisterBuilder(ServiceWS, func(c *Container) (interface{}, error) {
		logger, err := Logger(c)
		if err != nil {
			return nil, err
		}
		server, err := RPCServer(c)
		if err != nil {
			return nil, err
		}
		return rpc.NewWebSocketServer(server, logger.Named("ws")), nil
	})

	p.container.RegisterBuilder(ServicePublisher, func(c *Container) (interface{}, error) {
		logger, err := Logger(c)
		if err != nil {
			return nil, err
		}
		ws, err := WSServer(c)
		if err != nil {
			return nil, err
		}
		return rpc.NewPublisher(ws.Manager(), logger.Named("events")), nil
	})
}

// persistHook checkpoints every committed operation: the state delta
// plus the full balance snapshot. It runs under the engine lock, so
// checkpoints land in commit order.
func (p *Provider) persistHook(store *storage.Store, memBank *bank.MemoryBank, logger *zap.Logger) tx.CommitHook {
	log := logger.Named("checkpoint")
	return func(changes []state.Change, _ []events.Event) {
		if err := store.ApplyChanges(changes); err != nil {
			log.Error("failed to persist state changes", zap.Error(err))
			return
		}
		if err := store.PutBalances(memBank.Snapshot()); err != nil {
			log.Error("failed to persist balances", zap.Error(err))
		}
	}
}
