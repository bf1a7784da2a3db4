package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"workshop-backend/config"
	"workshop-backend/internal/auth"
	"workshop-backend/internal/database"
	"workshop-backend/internal/handlers"
	"workshop-backend/internal/repository"
	"workshop-backend/internal/scheduler"
	"workshop-backend/internal/session"
	"workshop-backend/internal/video"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title           Workshop Backend API
// @version         1.0
// @description     Workshop scheduling and live video session API.

// @host      localhost:8090
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the token with the `Bearer ` prefix, e.g. "Bearer abcde12345"

func setupLogger(cfg *config.LoggerConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logLevel, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	output := os.Stdout
	if cfg.OutputPath != "" {
		file, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			output = file
		}
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	})
}

func newGateway(cfg *config.Config) video.Gateway {
	if cfg.Video.Provider == config.ProviderLiveKit {
		return video.NewLiveKitClient(cfg.LiveKit.Host, cfg.LiveKit.APIKey, cfg.LiveKit.APISecret)
	}
	return video.NewDailyClient(cfg.Video.APIBase, cfg.Video.APIKey, cfg.Video.RequestTimeoutDuration())
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(&cfg.Logger)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	workshopRepo := repository.NewWorkshopRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	rulesRepo := repository.NewRulesRepository(db)

	// Session services
	gateway := newGateway(cfg)
	timeout := cfg.Video.RequestTimeoutDuration()
	rooms := session.NewRoomProvisioner(gateway, workshopRepo, cfg.Video.RoomPrefix, timeout)
	resolver := session.NewRulesResolver(workshopRepo, rulesRepo)
	admission := session.NewAdmission(workshopRepo, participantRepo, userRepo, rooms, resolver, gateway,
		session.AdmissionConfig{
			RoomURL:  cfg.Video.RoomURL,
			TokenTTL: cfg.Session.MeetingTokenTTLDuration(),
			Timeout:  timeout,
		}, nil)
	host := session.NewHostControl(workshopRepo, rulesRepo, gateway, timeout, nil)
	reaper := session.NewRoomReaper(workshopRepo, rooms, nil)

	sched, err := scheduler.New(reaper, cfg.Session.ReaperInterval, time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule room reaper")
	}
	sched.Start()
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "Workshop API",
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error().Err(err).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Error handling request")

			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			return c.Status(code).JSON(fiber.Map{
				"error": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.Server.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		MaxAge:       300,
	}))

	handlers.RegisterRoutes(app, handlers.Handlers{
		Auth:      handlers.NewAuthHandler(auth.NewAuthService(userRepo, &cfg.Auth)),
		Users:     handlers.NewUsersHandler(userRepo),
		Workshops: handlers.NewWorkshopHandler(workshopRepo, participantRepo, rooms),
		Video:     handlers.NewVideoHandler(admission, resolver, host, cfg.Video.WebhookSecret),
		Health:    handlers.NewHealthHandler(db),
	}, &cfg.Auth)

	serverAddr := cfg.Server.Host + ":" + cfg.Server.Port
	go func() {
		if err := app.Listen(serverAddr); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
}

func corsOrigins(configured string) string {
	if strings.TrimSpace(configured) == "" {
		return "http://localhost:5173,http://127.0.0.1:5173"
	}
	return configured
}
