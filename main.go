package main

import (
	"context"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/faizsupianwork/temberang/config"
	"github.com/faizsupianwork/temberang/game"
	"github.com/faizsupianwork/temberang/migrations"
	"github.com/faizsupianwork/temberang/storage"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	repo, err := storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer repo.Close()

	svc := game.NewService(repo, game.ServiceConfig{
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
	}, log.Logger)
	handler := game.NewHandler(svc, repo, log.Logger)

	r := CreateServer(cfg.AllowedOrigins)

	{
		api := r.Group("/api")
		api.POST("/rooms", handler.CreateRoomHandler)
		api.GET("/rooms/:code", handler.GetRoomHandler)
		api.GET("/categories", handler.GetCategoriesHandler)
		api.POST("/wordpacks", handler.UploadWordpackHandler)
		api.POST("/poll", handler.PollActionHandler)
	}
	r.GET("/ws", handler.WebsocketHandler)

	log.Info().Str("listen", cfg.Listen).Msg("temberang server starting")
	if err := r.Run(cfg.Listen); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
