package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"salegate/internal/authority"
	authorityStore "salegate/internal/authority/store"
	jwttoken "salegate/internal/jwt_token"
	"salegate/internal/ledger"
	ledgerStore "salegate/internal/ledger/store"
	"salegate/internal/phase"
	phaseStore "salegate/internal/phase/store"
	"salegate/internal/platform/config"
	"salegate/internal/platform/httpserver"
	"salegate/internal/platform/logger"
	"salegate/internal/platform/metrics"
	redisClient "salegate/internal/platform/redis"
	"salegate/internal/sale"
	"salegate/internal/token"
	httptransport "salegate/internal/transport/http"
	"salegate/internal/treasury"
	treasuryStore "salegate/internal/treasury/store"
	"salegate/internal/vesting"
	"salegate/internal/whitelist"
	whitelistStore "salegate/internal/whitelist/store"
	"salegate/migrations"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/audit"
	auditKafka "salegate/pkg/platform/audit/kafka"
	auditMemory "salegate/pkg/platform/audit/store/memory"
	auditPostgres "salegate/pkg/platform/audit/store/postgres"
	auditWorker "salegate/pkg/platform/audit/worker"
	"salegate/pkg/platform/tx"
)

// main wires the engine together. Business logic lives in the internal
// services; this only assembles stores, services and the HTTP surface, then
// runs them until a signal arrives.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	custody, err := id.ParseAccount(cfg.CustodyAccount)
	if err != nil {
		return errors.New("SALEGATE_CUSTODY_ACCOUNT is required and must be a valid account")
	}
	totalSaleCap, err := id.ParseAmount(cfg.TotalSaleCap)
	if err != nil {
		return errors.New("SALEGATE_TOTAL_SALE_CAP must be a decimal amount")
	}

	var (
		db     *sql.DB
		runner tx.Runner

		authoritySt authority.Store
		whitelistSt whitelist.Store
		phaseSt     phase.Store
		ledgerSt    ledger.Store
		treasurySt  treasury.Store
		auditSt     audit.Store
	)

	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
		runner = tx.NewSQLRunner(db)

		authoritySt = authorityStore.NewPostgres(db)
		pgWhitelist := whitelistStore.NewPostgres(db)
		whitelistSt = pgWhitelist
		pgPhase := phaseStore.NewPostgres(db)
		if err := pgPhase.Seed(ctx, totalSaleCap); err != nil {
			return err
		}
		phaseSt = pgPhase
		ledgerSt = ledgerStore.NewPostgres(db)
		treasurySt = treasuryStore.NewPostgres(db)
		auditSt = auditPostgres.New(db)

		if rc, err := redisClient.New(cfg.Redis); err != nil {
			log.Warn("redis unavailable, whitelist cache disabled", "error", err)
		} else if rc != nil {
			whitelistSt = whitelistStore.NewRedis(rc.Client, pgWhitelist)
			defer rc.Close()
		}
	} else {
		runner = tx.NewSingleWriter()
		authoritySt = authorityStore.NewInMemory()
		whitelistSt = whitelistStore.NewInMemory()
		phaseSt = phaseStore.NewInMemory(totalSaleCap)
		ledgerSt = ledgerStore.NewInMemory()
		var wallet id.Account
		if cfg.CollectorWallet != "" {
			if wallet, err = id.ParseAccount(cfg.CollectorWallet); err != nil {
				return errors.New("SALEGATE_COLLECTOR_WALLET must be a valid account")
			}
		}
		treasurySt = treasuryStore.NewInMemory(wallet)
		auditSt = auditMemory.New()
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		auditOpts = append(auditOpts, audit.WithOutbox(1024))
	}
	publisher := audit.NewPublisher(auditSt, auditOpts...)

	m := metrics.New()

	// The asset ledger and native bank are external collaborators; the
	// in-process implementations stand in for them.
	tokens := token.NewInMemoryLedger(custody, id.Zero())
	bank := token.NewInMemoryBank()

	authoritySvc := authority.New(authoritySt, runner,
		authority.WithLogger(log), authority.WithAuditPublisher(publisher))
	if cfg.BootstrapAdmin != "" {
		creator, err := id.ParseAccount(cfg.BootstrapAdmin)
		if err != nil {
			return errors.New("SALEGATE_BOOTSTRAP_ADMIN must be a valid account")
		}
		if err := authoritySvc.Bootstrap(ctx, creator); err != nil {
			return err
		}
	}

	whitelistSvc := whitelist.New(whitelistSt, authoritySvc, runner,
		whitelist.WithLogger(log), whitelist.WithAuditPublisher(publisher))
	phaseCtl := phase.New(phaseSt, authoritySvc, runner,
		phase.WithLogger(log), phase.WithAuditPublisher(publisher))
	ledgerSvc := ledger.New(ledgerSt, authoritySvc, runner, tokens, custody,
		ledger.WithLogger(log), ledger.WithAuditPublisher(publisher), ledger.WithMetrics(m))
	treasurySvc := treasury.New(treasurySt, authoritySvc, ledgerSvc, runner, tokens, bank, custody,
		treasury.WithLogger(log), treasury.WithAuditPublisher(publisher), treasury.WithMetrics(m))
	engine := sale.New(phaseCtl, whitelistSvc, ledgerSvc, treasurySvc, runner, tokens, bank, custody,
		sale.WithLogger(log), sale.WithAuditPublisher(publisher), sale.WithMetrics(m),
		sale.WithBonusReleaseDelay(cfg.BonusReleaseDelay))
	vestingSvc := vesting.New(authoritySvc, ledgerSvc, runner, tokens, custody,
		vesting.WithLogger(log), vesting.WithAuditPublisher(publisher), vesting.WithMetrics(m),
		vesting.WithTrancheInterval(cfg.TrancheInterval))

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	handler := httptransport.NewHandler(log, authoritySvc, whitelistSvc, phaseCtl, engine,
		ledgerSvc, vestingSvc, treasurySvc, publisher, jwtSvc)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditKafka.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		worker := auditWorker.New(sink, publisher.Outbox(), log)
		g.Go(func() error {
			return worker.Run(ctx)
		})
	}

	g.Go(func() error {
		log.Info("starting salegate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
