package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/researchrag/internal/config"
	dbRedis "github.com/kailas-cloud/researchrag/internal/db/redis"
	blockrepo "github.com/kailas-cloud/researchrag/internal/repository/block"
	budgetrepo "github.com/kailas-cloud/researchrag/internal/repository/budget"
	"github.com/kailas-cloud/researchrag/internal/repository/postgres"
	sessionrepo "github.com/kailas-cloud/researchrag/internal/repository/session"
	chatuc "github.com/kailas-cloud/researchrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/researchrag/internal/usecase/health"
	llmuc "github.com/kailas-cloud/researchrag/internal/usecase/llm"
	raguc "github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

// backend bundles the repositories of one storage driver.
type backend struct {
	blocks   raguc.BlockStore
	sessions chatuc.SessionStore
	budget   llmuc.BudgetStore
	pinger   healthuc.DBPinger
	close    func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	switch cfg.Database.Driver {
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		pg, err := postgres.Connect(connectCtx, postgres.Config{
			URL:          cfg.Database.URL,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		if err := pg.InitSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return &backend{
			blocks:   postgres.NewBlockStore(pg),
			sessions: postgres.NewSessionStore(pg),
			budget:   postgres.NewBudgetStore(pg),
			pinger:   pg,
			close:    func() { _ = pg.Close() },
		}, nil

	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, err
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, err
		}
		blocks := blockrepo.New(store, cfg.Storage.KeyPrefix)
		if err := blocks.EnsureIndex(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return &backend{
			blocks:   blocks,
			sessions: sessionrepo.New(store, cfg.Storage.KeyPrefix),
			budget:   budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL),
			pinger:   store,
			close:    store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
