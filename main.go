package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gigconnectportfolio/gigconnect-order-service/consumer"
	"github.com/gigconnectportfolio/gigconnect-order-service/controllers"
	"github.com/gigconnectportfolio/gigconnect-order-service/database"
	"github.com/gigconnectportfolio/gigconnect-order-service/events"
	"github.com/gigconnectportfolio/gigconnect-order-service/gateway"
	"github.com/gigconnectportfolio/gigconnect-order-service/logger"
	"github.com/gigconnectportfolio/gigconnect-order-service/middleware"
	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	aws_pkg "github.com/gigconnectportfolio/gigconnect-order-service/pkg/aws"
	"github.com/gigconnectportfolio/gigconnect-order-service/realtime"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/gigconnectportfolio/gigconnect-order-service/routes"
	"github.com/gigconnectportfolio/gigconnect-order-service/services"
	"github.com/gigconnectportfolio/gigconnect-order-service/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const serviceName = "order-service"

func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred close has run.
func run() int {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := LoadConfig()

	log, err := logger.New(cfg.AppEnv, nil)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Error("Failed to load AWS config", zap.Error(err))
		return 1
	}

	if cfg.UseSecrets {
		cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg))
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return 1
	}

	if cfg.CloudWatchEnabled {
		cwLogs, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName, cfg.LogGroup)
		if err != nil {
			log.Warn("CloudWatch logs client init failed (non-fatal)", zap.Error(err))
		} else if withSink, err := logger.New(cfg.AppEnv, cwLogs); err == nil {
			log = withSink
		}
	}
	metricsClient := aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)

	// --- Stores ---
	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDB, log)
	if err != nil {
		log.Error("MongoDB connection failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := database.DisconnectMongo(mongoClient); err != nil {
			log.Error("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	orderRepo := repository.NewMongoOrderRepository(mongoDB.Collection(database.OrdersCollection))
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		log.Error("Failed to create order indexes", zap.Error(err))
		return 1
	}

	pg, err := database.ConnectPostgres(cfg.Postgres, log, &models.Notification{})
	if err != nil {
		log.Error("PostgreSQL connection failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := database.ClosePostgres(pg); err != nil {
			log.Error("PostgreSQL close failed", zap.Error(err))
		}
	}()
	notificationRepo := repository.NewNotificationRepository(pg)

	// --- Live notifications ---
	var emitter realtime.Emitter = realtime.NoopEmitter{}
	stream := func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live notifications unavailable"})
	}
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Warn("Redis unavailable, live notifications disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			redisEmitter := realtime.NewRedisEmitter(redisClient)
			emitter = redisEmitter
			stream = realtime.StreamHandler(redisEmitter, log)
		}
	}

	// --- Integrations ---
	var paymentGateway gateway.PaymentGateway
	switch cfg.PaymentGateway {
	case GatewayStripe:
		paymentGateway = gateway.NewStripeClient(cfg.StripeSecretKey)
	default:
		paymentGateway = gateway.NewFlutterwaveClient(cfg.FlutterwaveAPIURL, cfg.FlutterwaveSecretKey)
	}

	var publisher events.Publisher
	switch cfg.EventTransport {
	case TransportKafka:
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers)
	default:
		publisher = events.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.Topics())
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("Publisher close failed", zap.Error(err))
		}
	}()

	var uploader storage.Uploader
	if cfg.DeliveryBucket != "" {
		uploader = storage.NewS3Uploader(aws_pkg.NewUploader(aws_pkg.NewS3Client(awsCfg)), storage.S3Config{
			Bucket:    cfg.DeliveryBucket,
			Prefix:    cfg.DeliveryPrefix,
			CDNDomain: cfg.CDNDomain,
			Endpoint:  cfg.S3Endpoint,
		})
	} else {
		log.Warn("DELIVERY_BUCKET not set, file deliveries will be rejected")
	}

	var ledger repository.MessageLedger
	if cfg.ProcessedMessagesTable != "" {
		ledger = repository.NewDynamoMessageLedger(newDynamoClient(awsCfg), cfg.ProcessedMessagesTable, 7*24*time.Hour)
	}

	// --- Service wiring ---
	notificationService := services.NewNotificationService(notificationRepo, emitter, log)
	orderService := services.NewOrderService(
		orderRepo,
		paymentGateway,
		publisher,
		notificationService,
		uploader,
		metricsClient,
		services.OrderServiceConfig{ClientURL: cfg.ClientURL},
		log,
	)

	orderController := controllers.NewOrderController(orderService)
	notificationController := controllers.NewNotificationController(notificationService)

	// --- HTTP router ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	limiter := middleware.NewRateLimiter(rate.Limit(20), 40, 10*time.Minute)
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.RateLimit(limiter),
		middleware.MetricsMiddleware(metricsClient, serviceName),
		cors.New(cors.Config{
			AllowOrigins:     []string{cfg.APIGatewayURL, cfg.ClientURL},
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	routes.RegisterHealthRoutes(r)
	routes.RegisterOrderRoutes(r, orderController, notificationController, stream, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Order Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down Order Service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.Cleanup(); n > 0 {
					log.Debug("Evicted idle rate limiters", zap.Int("count", n))
				}
			}
		}
	})

	if cfg.ReviewQueueURL != "" {
		reviews := consumer.NewReviewConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.ReviewQueueURL, log),
			orderService,
			ledger,
			metricsClient,
			log,
		)
		g.Go(func() error { return reviews.Start(gctx) })
	} else {
		log.Warn("REVIEW_QUEUE_URL not set, review consumer disabled")
	}

	if err := g.Wait(); err != nil {
		log.Error("Order Service stopped with error", zap.Error(err))
		return 1
	}
	log.Info("Order Service stopped gracefully")
	return 0
}

func newDynamoClient(awsCfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint := aws_pkg.CustomEndpoint(); endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
		}
	})
}
