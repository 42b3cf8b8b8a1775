package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kizunalabs/kizuna-backend/internal/app"
	"github.com/kizunalabs/kizuna-backend/internal/clients/openai"
	"github.com/kizunalabs/kizuna-backend/internal/clients/pinecone"
	"github.com/kizunalabs/kizuna-backend/internal/clients/redis"
	"github.com/kizunalabs/kizuna-backend/internal/db"
	"github.com/kizunalabs/kizuna-backend/internal/handlers"
	"github.com/kizunalabs/kizuna-backend/internal/middleware"
	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/server"
	"github.com/kizunalabs/kizuna-backend/internal/services"
	"github.com/kizunalabs/kizuna-backend/internal/sse"
	"github.com/kizunalabs/kizuna-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading configuration...")
	cfg := app.LoadConfig(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	postRepo := repos.NewPostRepo(thePG, log)
	valueProfileRepo := repos.NewValueProfileRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)

	// Clients
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Matching runs degraded (no matches, saves still work) when the vector
	// store is not reachable at startup.
	var pineconeClient pinecone.Client
	pineconeHost := ""
	pc, pErr := pinecone.New(log, pinecone.Config{
		APIKey: utils.GetEnv("PINECONE_API_KEY", "", log),
	})
	if pErr != nil {
		log.Warn("Could not init Pinecone client, matching disabled", "error", pErr)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		desc, dErr := pc.DescribeIndex(ctx, cfg.PineconeIndex)
		cancel()
		if dErr != nil {
			log.Warn("Could not describe Pinecone index, matching disabled", "index", cfg.PineconeIndex, "error", dErr)
		} else {
			pineconeClient = pc
			pineconeHost = desc.Host
			if !desc.Status.Ready {
				log.Warn("Pinecone index not ready yet, matching may fail until it is", "index", desc.Name, "state", desc.Status.State)
			}
			log.Info("Pinecone index resolved", "index", desc.Name, "host", desc.Host, "dimension", desc.Dimension)
		}
	}

	// SSE hub, with the Redis bus fanning events across instances.
	sseHub := sse.NewHub(log)
	chatBus, cbErr := redis.NewChatBus(log)
	if cbErr != nil {
		log.Warn("Could not init Redis chat bus, SSE stays single-instance", "error", cbErr)
		chatBus = nil
	} else {
		if fErr := chatBus.StartForwarder(context.Background(), func(m sse.Message) {
			sseHub.Broadcast(m)
		}); fErr != nil {
			log.Warn("Could not start chat bus forwarder", "error", fErr)
		}
		defer chatBus.Close()
	}

	// Services
	log.Info("Setting up services...")
	reconcileService := services.NewReconcileService(thePG, log, postRepo, valueProfileRepo, cfg.Profile)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, reconcileService, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userService := services.NewUserService(thePG, log, userRepo)
	valueService := services.NewValueService(thePG, log, cfg.Profile, openaiClient, pineconeClient, pineconeHost, postRepo, valueProfileRepo, userRepo)
	chatService := services.NewChatService(thePG, log, conversationRepo, messageRepo, sseHub, chatBus)
	counselorService := services.NewCounselorService(thePG, log, chatService, openaiClient)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	valueHandler := handlers.NewValueHandler(valueService)
	chatHandler := handlers.NewChatHandler(chatService)
	counselorHandler := handlers.NewCounselorHandler(counselorService)
	sseHandler := handlers.NewSSEHandler(sseHub, chatService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		UserHandler:      userHandler,
		ValueHandler:     valueHandler,
		ChatHandler:      chatHandler,
		CounselorHandler: counselorHandler,
		SSEHandler:       sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
