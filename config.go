package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gigconnectportfolio/gigconnect-order-service/database"
	"github.com/gigconnectportfolio/gigconnect-order-service/models"
)

const (
	GatewayFlutterwave = "flutterwave"
	GatewayStripe      = "stripe"

	TransportSNS   = "sns"
	TransportKafka = "kafka"
)

// Config holds all configuration for the order service.
type Config struct {
	Port   string
	AppEnv string

	MongoURL string
	MongoDB  string
	Postgres database.PostgresConfig
	RedisURL string

	ClientURL     string
	APIGatewayURL string

	PaymentGateway       string
	FlutterwaveAPIURL    string
	FlutterwaveSecretKey string
	StripeSecretKey      string

	EventTransport        string
	SellerUpdatesTopicARN string
	BuyerUpdatesTopicARN  string
	OrderEmailTopicARN    string
	KafkaBrokers          []string

	ReviewQueueURL         string
	ProcessedMessagesTable string

	DeliveryBucket string
	DeliveryPrefix string
	S3Endpoint     string
	CDNDomain      string

	CloudWatchEnabled bool
	MetricsNamespace  string
	LogGroup          string

	RequestTimeout time.Duration
	UseSecrets     bool
}

// secretSource is satisfied by the Secrets Manager client.
type secretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	timeoutSeconds, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "30"))
	if err != nil || timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}

	return &Config{
		Port:     getEnv("PORT", "4006"),
		AppEnv:   getEnv("APP_ENV", "development"),
		MongoURL: os.Getenv("MONGO_URL"),
		MongoDB:  getEnv("MONGO_DB", "gigconnect-order"),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		RedisURL:      os.Getenv("REDIS_URL"),
		ClientURL:     getEnv("CLIENT_URL", "http://localhost:3000"),
		APIGatewayURL: getEnv("API_GATEWAY_URL", "http://localhost:4000"),

		PaymentGateway:       strings.ToLower(getEnv("PAYMENT_GATEWAY", GatewayFlutterwave)),
		FlutterwaveAPIURL:    getEnv("FLUTTERWAVE_API_URL", "https://api.flutterwave.com/v3"),
		FlutterwaveSecretKey: os.Getenv("FLUTTERWAVE_SECRET_KEY"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),

		EventTransport:        strings.ToLower(getEnv("EVENT_TRANSPORT", TransportSNS)),
		SellerUpdatesTopicARN: os.Getenv("SELLER_UPDATES_TOPIC_ARN"),
		BuyerUpdatesTopicARN:  os.Getenv("BUYER_UPDATES_TOPIC_ARN"),
		OrderEmailTopicARN:    os.Getenv("ORDER_EMAIL_TOPIC_ARN"),
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),

		ReviewQueueURL:         os.Getenv("REVIEW_QUEUE_URL"),
		ProcessedMessagesTable: os.Getenv("PROCESSED_MESSAGES_TABLE"),

		DeliveryBucket: os.Getenv("DELIVERY_BUCKET"),
		DeliveryPrefix: getEnv("DELIVERY_PREFIX", "deliveries/"),
		S3Endpoint:     os.Getenv("AWS_S3_ENDPOINT"),
		CDNDomain:      os.Getenv("CDN_DOMAIN"),

		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
		MetricsNamespace:  getEnv("CLOUDWATCH_NAMESPACE", "GigConnect/OrderService"),
		LogGroup:          getEnv("CLOUDWATCH_LOG_GROUP", "/gigconnect/order-service"),

		RequestTimeout: time.Duration(timeoutSeconds) * time.Second,
		UseSecrets:     os.Getenv("AWS_USE_SECRETS") == "true",
	}
}

// ApplySecrets overrides credentials from Secrets Manager. Missing secrets
// keep the environment values.
func (c *Config) ApplySecrets(ctx context.Context, sm secretSource) {
	if v, err := sm.GetSecret(ctx, "order/MONGO_URL"); err == nil && v != "" {
		c.MongoURL = v
	}
	if m, err := sm.GetSecretMap(ctx, "order/DB_CREDENTIALS"); err == nil {
		overrideIfSet(&c.Postgres.User, m["POSTGRES_USER"])
		overrideIfSet(&c.Postgres.Password, m["POSTGRES_PASSWORD"])
		overrideIfSet(&c.Postgres.DBName, m["POSTGRES_DB"])
		overrideIfSet(&c.Postgres.Host, m["POSTGRES_HOST"])
		overrideIfSet(&c.Postgres.Port, m["POSTGRES_PORT"])
	}
	if v, err := sm.GetSecret(ctx, "order/FLUTTERWAVE_SECRET_KEY"); err == nil && v != "" {
		c.FlutterwaveSecretKey = v
	}
	if v, err := sm.GetSecret(ctx, "order/STRIPE_SECRET_KEY"); err == nil && v != "" {
		c.StripeSecretKey = v
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.MongoURL == "" {
		return fmt.Errorf("MONGO_URL not set")
	}
	if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" || c.Postgres.Host == "" {
		return fmt.Errorf("database config incomplete")
	}
	switch c.PaymentGateway {
	case GatewayFlutterwave:
		if c.FlutterwaveSecretKey == "" {
			return fmt.Errorf("FLUTTERWAVE_SECRET_KEY not set")
		}
	case GatewayStripe:
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY not set")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_GATEWAY %q", c.PaymentGateway)
	}
	switch c.EventTransport {
	case TransportSNS:
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS not set")
		}
	default:
		return fmt.Errorf("unsupported EVENT_TRANSPORT %q", c.EventTransport)
	}
	return nil
}

// Topics maps each exchange name to its SNS topic.
func (c *Config) Topics() map[string]string {
	topics := map[string]string{}
	if c.SellerUpdatesTopicARN != "" {
		topics[models.SellerUpdatesExchange] = c.SellerUpdatesTopicARN
	}
	if c.BuyerUpdatesTopicARN != "" {
		topics[models.BuyerUpdatesExchange] = c.BuyerUpdatesTopicARN
	}
	if c.OrderEmailTopicARN != "" {
		topics[models.OrderEmailExchange] = c.OrderEmailTopicARN
	}
	return topics
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func overrideIfSet(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
