package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/example/medflow/backend/internal/config"
	"github.com/example/medflow/backend/internal/db"
	httpserver "github.com/example/medflow/backend/internal/http"
	applog "github.com/example/medflow/backend/internal/log"
	"github.com/example/medflow/backend/internal/models"
	"github.com/example/medflow/backend/internal/mq"
	"github.com/example/medflow/backend/internal/repository"
	"github.com/example/medflow/backend/internal/service"
	"github.com/example/medflow/backend/internal/worker"
)

func main() {
	logger := applog.GetLogger()
	cfg := config.Load()

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	autoMigrate(database)

	var recorder mq.Publisher
	publisher, err := mq.NewRabbitPublisher(cfg.MQURL, cfg.MQActivityExchange)
	if err != nil {
		logger.Warnf("rabbitmq unavailable (%v), continuing without activity recording", err)
	} else {
		recorder = publisher
	}

	var consumer mq.Consumer
	if publisher != nil {
		consumer, err = mq.NewRabbitConsumer(cfg.MQURL, cfg.MQActivityExchange, cfg.MQActivityQueue)
		if err != nil {
			logger.Warnf("activity consumer unavailable: %v", err)
		} else if err := consumer.Consume(logActivity); err != nil {
			logger.Warnf("activity consumer start failed: %v", err)
		}
	}

	workflowRepo := repository.NewWorkflowRepository(database)
	mediaRepo := repository.NewMediaRepository(database)
	synchronizer := service.NewMediaSynchronizer(workflowRepo, mediaRepo)
	workflowService := service.NewWorkflowService(workflowRepo, synchronizer, recorder)
	apiServer := httpserver.NewServer(workflowRepo, workflowService, synchronizer)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	syncWorker := worker.NewMediaSyncWorker(synchronizer, cfg.MediaSyncInterval)
	go syncWorker.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: apiServer.Engine,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}

	if consumer != nil {
		_ = consumer.Close()
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	logger.Info("bye")
}

func autoMigrate(db *gorm.DB) {
	if err := db.AutoMigrate(&models.Workflow{}, &models.Video{}, &models.Short{}); err != nil {
		applog.GetLogger().Fatalf("auto migrate: %v", err)
	}
}

// logActivity is the portal's audit sink: every activity event published by
// the engine lands in the service log.
func logActivity(msg amqp091.Delivery) {
	applog.GetLogger().Infof("activity %s: %s", msg.RoutingKey, msg.Body)
	_ = msg.Ack(false)
}

func init() {
	if mode := os.Getenv("GIN_MODE"); mode == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
