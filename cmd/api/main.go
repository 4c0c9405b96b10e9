package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appefactura "github.com/bct-trans/efactura-api/internal/application/efactura"
	"github.com/bct-trans/efactura-api/internal/application/events"
	"github.com/bct-trans/efactura-api/internal/infrastructure/anaf"
	"github.com/bct-trans/efactura-api/internal/infrastructure/exchange"
	"github.com/bct-trans/efactura-api/internal/infrastructure/postgres"
	"github.com/bct-trans/efactura-api/internal/infrastructure/registry"
	"github.com/bct-trans/efactura-api/internal/infrastructure/storage"
	"github.com/bct-trans/efactura-api/internal/infrastructure/ubl"
	httpRouter "github.com/bct-trans/efactura-api/internal/interfaces/http"
	"github.com/bct-trans/efactura-api/pkg/config"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("starting application")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("PostgreSQL connection")
	}
	defer pool.Close()

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)

	fileStore, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("attachment storage")
	}

	tokens := anaf.NewOAuthTokenSource(
		cfg.ANAF.TokenURL, cfg.ANAF.ClientID, cfg.ANAF.ClientSecret, cfg.ANAF.RefreshToken,
	)
	gateway := anaf.NewClient(cfg.ANAF.BaseURL, cfg.ANAF.CIF, tokens)
	rates := exchange.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.APIKey)
	domestic := registry.NewOpenAPIClient(cfg.Registry.OpenAPIBaseURL, cfg.Registry.OpenAPIKey)
	vies := registry.NewVIESClient(cfg.Registry.VIESBaseURL)

	bus := events.NewBus()
	defer bus.Close()

	resolver := appefactura.NewCompanyResolver(companyRepo, domestic, vies, log)
	machine := appefactura.NewStateMachine(invoiceRepo, gateway, rates, ubl.NewBuilder(), fileStore, log)
	inbound := appefactura.NewInboundProcessor(gateway, resolver, expenseRepo, messageRepo, bus, fileStore, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		StateMachine: machine,
		Inbound:      inbound,
		Messages:     messageRepo,
		Bus:          bus,
		Log:          log,
		JWTSecret:    cfg.JWT.Secret,
	})

	// Scheduled inbound fetch, enabled by configuration.
	fetchCtx, stopFetch := context.WithCancel(ctx)
	defer stopFetch()
	if cfg.ANAF.FetchMinutes > 0 {
		go fetchLoop(fetchCtx, inbound, cfg.ANAF.FetchMinutes, log)
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Fatal().Err(err).Msg("HTTP server")
		}
	}()
	log.Info().Str("addr", cfg.HTTP.Addr()).Msg("listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	stopFetch()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// fetchLoop polls the gateway inbox on a fixed interval. Each run is bounded
// so a hung gateway cannot pile runs up.
func fetchLoop(ctx context.Context, inbound *appefactura.InboundProcessor, minutes int, log *logger.Logger) {
	ticker := time.NewTicker(time.Duration(minutes) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			report, err := inbound.FetchAndProcess(runCtx, 60)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("scheduled inbound fetch")
				continue
			}
			log.Info().
				Int("listed", report.Listed).
				Int("processed", report.Processed).
				Int("skipped", report.Skipped).
				Msg("inbound fetch completed")
		}
	}
}
