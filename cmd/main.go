package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arkplatform/user-service/internal/action"
	"github.com/arkplatform/user-service/internal/command"
	"github.com/arkplatform/user-service/internal/config"
	"github.com/arkplatform/user-service/internal/events"
	"github.com/arkplatform/user-service/internal/handler"
	"github.com/arkplatform/user-service/internal/middleware"
	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/notify"
	"github.com/arkplatform/user-service/internal/picture"
	"github.com/arkplatform/user-service/internal/query"
	redisclient "github.com/arkplatform/user-service/internal/redis"
	"github.com/arkplatform/user-service/internal/repository"
	"github.com/arkplatform/user-service/internal/session"
	"github.com/arkplatform/user-service/internal/storage"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

func main() {
	middleware.MustInitJWTSecret()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection (write store)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Redis connection (read model store + event streaming)
	redis, err := redisclient.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	publisher := events.NewPublisher(redis.Client)

	writeRepo := repository.NewUserWriteRepository(db)
	readRepo := repository.NewUserReadRepository(db, redis.Client)

	attachments, err := newAttachmentStore(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to set up attachment store: %v", err)
	}

	// Notification transports
	mailer := notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword, cfg.VerifyBaseURL)
	channel := notify.NewStreamNotifier(publisher)
	chat := notify.NewStreamChatSeeder(publisher)

	// Action router: all handlers register here, before serving begins.
	router := action.NewRouter()
	mustRegisterCreate(router, models.StrategyDefault, command.DefaultCreateHandler(writeRepo))
	for _, strategy := range cfg.FederatedStrategies {
		mustRegisterCreate(router, strategy, command.FederatedCreateHandler(writeRepo, strategy))
	}

	router.RegisterNotify(action.TopicRegistrationMail, func(ctx context.Context, n action.Notification) error {
		identity := notify.Identity{UserID: n.UserID, Name: n.Name, Mail: n.Mail, UUID: n.UUID}
		if n.Password != "" {
			return mailer.SendRegistrationMailWithPassword(ctx, identity, n.Password)
		}
		return mailer.SendRegistrationMail(ctx, identity)
	})
	router.RegisterNotify(action.TopicChannelNotice, func(ctx context.Context, n action.Notification) error {
		return channel.Notice(ctx, n.Text)
	})
	router.RegisterNotify(action.TopicWelcomeChat, func(ctx context.Context, n action.Notification) error {
		return chat.SeedWelcomeChat(ctx, notify.Identity{UserID: n.UserID, Name: n.Name, Mail: n.Mail})
	})
	router.RegisterNotify(action.TopicResourceBootstrap, func(ctx context.Context, n action.Notification) error {
		return writeRepo.BootstrapDefaultResource(ctx, n.UserID)
	})

	// Services
	commandSvc := command.NewUserCommandService(writeRepo, readRepo, router, publisher)
	querySvc := query.NewUserQueryService(readRepo)
	scheduler := command.NewBulkScheduler(commandSvc, cfg.BulkDelay)
	pipeline := picture.NewPipeline(attachments, writeRepo,
		picture.VariantSpec{Name: "profile", Width: cfg.PictureFullSize, Height: cfg.PictureFullSize},
		picture.VariantSpec{Name: "profile-thumb", Width: cfg.PictureThumbSize, Height: cfg.PictureThumbSize},
	)
	sessions := session.NewManager(cfg.SessionTTL)

	userHandler := handler.NewUserHandler(commandSvc, querySvc, scheduler, pipeline, attachments, sessions, ctx)

	// HTTP routes
	engine := gin.Default()
	engine.Use(middleware.LoggingMiddleware())

	v1 := engine.Group("/v1/users")
	{
		v1.POST("", userHandler.CreateUser)
		v1.GET("/me", middleware.AuthMiddleware(), userHandler.GetMe)
		v1.GET("/:userId", middleware.AuthMiddleware(), userHandler.GetUser)
		v1.PATCH("/:userId", middleware.AuthMiddleware(), userHandler.UpdateUser)
		v1.PUT("/:userId/password", middleware.AuthMiddleware(), userHandler.UpdatePassword)
		v1.DELETE("/:userId", middleware.AuthMiddleware(), userHandler.DeleteUser)
		v1.POST("/bulk", middleware.AuthMiddleware(), userHandler.BulkCreate)
		v1.POST("/me/picture", middleware.AuthMiddleware(), userHandler.UploadPicture)
		v1.PUT("/me/picture", middleware.AuthMiddleware(), userHandler.UploadPicture)
		v1.GET("/:userId/picture/:name", userHandler.GetPicture)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Keep the live registration counter current from the event stream.
	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "user-service-group",
			Consumer: "user-consumer-1",
			Stream:   events.UserEventsStream,
			Handler:  commandSvc.HandleUserEvent,
		})
		if err := subscriber.Start(ctx); err != nil {
			log.Printf("Subscriber stopped: %v", err)
		}
	}()

	// Graceful shutdown: cancelling ctx also stops in-flight bulk batches.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("User service starting on port %s", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newAttachmentStore(ctx context.Context, cfg *config.Config, db *sql.DB) (storage.AttachmentStore, error) {
	if cfg.AttachmentBackend == config.AttachmentsS3 {
		return storage.NewS3AttachmentStore(ctx, cfg.S3)
	}
	return storage.NewPostgresAttachmentStore(db), nil
}

func mustRegisterCreate(router *action.Router, strategy string, h action.CreateHandler) {
	if err := router.RegisterCreate(strategy, h); err != nil {
		log.Fatalf("Failed to register create handler %s: %v", strategy, err)
	}
}
