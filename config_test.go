package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func (f fakeSecrets) GetSecretMap(ctx context.Context, name string) (map[string]string, error) {
	raw, err := f.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("POSTGRES_USER", "order")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "gigconnect")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("FLUTTERWAVE_SECRET_KEY", "FLWSECK-test")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "4006", cfg.Port)
	assert.Equal(t, GatewayFlutterwave, cfg.PaymentGateway)
	assert.Equal(t, TransportSNS, cfg.EventTransport)
	assert.Equal(t, "https://api.flutterwave.com/v3", cfg.FlutterwaveAPIURL)
	assert.Equal(t, "deliveries/", cfg.DeliveryPrefix)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "5432", cfg.Postgres.Port)
}

func TestLoadConfig_InvalidTimeoutFallsBack(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "soon")

	assert.Equal(t, 30*time.Second, LoadConfig().RequestTimeout)
}

func TestValidate_MissingMongo(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MONGO_URL", "")

	assert.EqualError(t, LoadConfig().Validate(), "MONGO_URL not set")
}

func TestValidate_StripeNeedsKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYMENT_GATEWAY", "Stripe")

	cfg := LoadConfig()

	assert.Equal(t, GatewayStripe, cfg.PaymentGateway)
	assert.EqualError(t, cfg.Validate(), "STRIPE_SECRET_KEY not set")
}

func TestValidate_KafkaNeedsBrokers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EVENT_TRANSPORT", "kafka")

	assert.EqualError(t, LoadConfig().Validate(), "KAFKA_BROKERS not set")

	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	cfg := LoadConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestApplySecrets_Overrides(t *testing.T) {
	setRequiredEnv(t)
	cfg := LoadConfig()

	cfg.ApplySecrets(context.Background(), fakeSecrets{
		"order/MONGO_URL":              "mongodb+srv://prod",
		"order/DB_CREDENTIALS":         `{"POSTGRES_USER":"prod_user","POSTGRES_HOST":"rds.internal"}`,
		"order/FLUTTERWAVE_SECRET_KEY": "FLWSECK-live",
	})

	assert.Equal(t, "mongodb+srv://prod", cfg.MongoURL)
	assert.Equal(t, "prod_user", cfg.Postgres.User)
	assert.Equal(t, "rds.internal", cfg.Postgres.Host)
	assert.Equal(t, "secret", cfg.Postgres.Password)
	assert.Equal(t, "FLWSECK-live", cfg.FlutterwaveSecretKey)
}

func TestApplySecrets_BadJSONKeepsEnv(t *testing.T) {
	setRequiredEnv(t)
	cfg := LoadConfig()

	cfg.ApplySecrets(context.Background(), fakeSecrets{"order/DB_CREDENTIALS": "{not json"})

	assert.Equal(t, "order", cfg.Postgres.User)
}

func TestTopics(t *testing.T) {
	t.Setenv("SELLER_UPDATES_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:seller")
	t.Setenv("ORDER_EMAIL_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:email")

	topics := LoadConfig().Topics()

	assert.Len(t, topics, 2)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:seller", topics[models.SellerUpdatesExchange])
	assert.NotContains(t, topics, models.BuyerUpdatesExchange)
}
