package main // Entry point package

import (
	"context" // bounds the startup migration
	"log"     // Logging library
	"time"    // migration timeout

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/router"
	"github.com/iliyamo/event-registration/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	// Redis is optional: nil disables the response cache and rate limiter.
	rdb := config.NewRedisClient()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	checkins := repository.NewCheckInRepo(db)

	// Services.
	eventSvc := service.NewEventService(events, regs)
	regSvc := service.NewRegistrationService(events, regs, users)
	checkinSvc := service.NewCheckInService(events, regs, checkins, users)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(eventSvc)
	regH := handler.NewRegistrationHandler(regSvc, cfg.TicketQRSize)
	orgH := handler.NewOrganizerHandler(eventSvc, checkinSvc)
	ciH := handler.NewCheckInHandler(checkinSvc)
	admH := handler.NewAdminHandler(users, events, regs, checkins)

	// Confirmation notifications drain in the background; the consumer
	// reconnects on its own if the broker goes away.
	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("registration consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, config.LoadCacheConfig(), rdb)
	router.RegisterAPI(e, cfg, config.LoadRateLimitConfig(), rdb, regH, orgH, ciH, admH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
