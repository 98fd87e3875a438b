package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teamstream-hq/teamstream/internal/api"
	"github.com/teamstream-hq/teamstream/internal/chat"
	"github.com/teamstream-hq/teamstream/internal/config"
	"github.com/teamstream-hq/teamstream/internal/db"
	"github.com/teamstream-hq/teamstream/internal/guard"
	"github.com/teamstream-hq/teamstream/internal/middleware"
	"github.com/teamstream-hq/teamstream/internal/observ"
	"github.com/teamstream-hq/teamstream/internal/realtime"
	"github.com/teamstream-hq/teamstream/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent request or deadline, so Background() is the
	// right root. Each HTTP request gets its own context later.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	// Redis is optional: without it the hub still delivers events to
	// clients connected to this instance, it just can't reach the others.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	// One pool shared by every store; pgxpool is goroutine-safe.
	pool := database.Pool()
	repos := chat.Repos{
		Channels:    postgres.NewChannelStore(pool),
		Memberships: postgres.NewMembershipStore(pool),
		Dms:         postgres.NewDmStore(pool),
		Messages:    postgres.NewMessageStore(pool),
		Pins:        postgres.NewPinStore(pool),
		Reactions:   postgres.NewReactionStore(pool),
		Markers:     postgres.NewReadMarkerStore(pool),
		Users:       postgres.NewUserStore(pool),
	}
	tenantRepo := postgres.NewTenantStore(pool)

	g := guard.New(
		repos.Channels,
		repos.Memberships,
		repos.Dms,
		repos.Messages,
		repos.Users,
		observ.NewSecurityLog(logger),
	)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := realtime.NewHub(rdb, logger)
	go hub.Run(hubCtx)

	deps := &api.Deps{
		Guard:  g,
		Repos:  repos,
		Hub:    hub,
		Logger: logger,
	}

	authHandler := api.NewAuthHandler(repos.Users, tenantRepo, cfg.JWTSecret, logger)
	userHandler := api.NewUserHandler(repos.Users, g, logger)
	channelHandler := api.NewChannelHandler(deps)
	messageHandler := api.NewMessageHandler(deps)
	dmHandler := api.NewDmHandler(deps)
	reactionHandler := api.NewReactionHandler(deps)
	pinHandler := api.NewPinHandler(deps)
	unreadHandler := api.NewUnreadHandler(deps)
	wsHandler := api.NewWsHandler(deps)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	logger.Info("starting teamstream",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	// Health check is PUBLIC — load balancers hit this unauthenticated.
	srv.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Auth endpoints are the other public surface; they mint the tokens
	// everything else requires.
	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)

	// Everything below requires a valid JWT. The middleware runs before
	// any handler in the group; a bad token never reaches one.
	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.GET("/users/me", userHandler.GetMe)
	v1.POST("/users", userHandler.Invite)

	v1.POST("/channels", channelHandler.Create)
	v1.GET("/channels", channelHandler.List)
	v1.GET("/channels/:id", channelHandler.GetByID)
	v1.GET("/channels/:id/members", channelHandler.ListMembers)
	v1.POST("/channels/:id/join", channelHandler.Join)
	v1.POST("/channels/:id/leave", channelHandler.Leave)
	v1.POST("/channels/:id/members", channelHandler.AddMember)
	v1.DELETE("/channels/:id/members/:userID", channelHandler.RemoveMember)

	v1.POST("/channels/:id/messages", messageHandler.Create)
	v1.GET("/channels/:id/messages", messageHandler.List)
	v1.GET("/messages/:messageID", messageHandler.Get)
	v1.PATCH("/messages/:messageID", messageHandler.Edit)
	v1.DELETE("/messages/:messageID", messageHandler.Delete)
	v1.GET("/messages/:messageID/replies", messageHandler.ListReplies)
	v1.GET("/threads", messageHandler.ThreadSummaries)

	v1.POST("/messages/:messageID/reactions", reactionHandler.Add)
	v1.DELETE("/messages/:messageID/reactions", reactionHandler.Remove)
	v1.GET("/messages/:messageID/reactions", reactionHandler.List)

	v1.GET("/channels/:id/pins", pinHandler.List)
	v1.POST("/channels/:id/pins", pinHandler.Create)
	v1.DELETE("/channels/:id/pins/:messageID", pinHandler.Delete)

	v1.GET("/dms", dmHandler.List)
	v1.POST("/dms", dmHandler.Open)
	v1.GET("/dms/:id/messages", dmHandler.ListMessages)
	v1.POST("/dms/:id/messages", dmHandler.CreateMessage)

	v1.GET("/unread", unreadHandler.FirstUnread)
	v1.POST("/read", unreadHandler.MarkRead)

	v1.GET("/ws", wsHandler.Serve)

	return srv.Run(":" + cfg.Port)
}
