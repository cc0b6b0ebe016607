package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MessageLedger remembers queue messages that were already applied so a
// redelivery is acknowledged without running the handler twice. A message
// is recorded only after its handler succeeded.
type MessageLedger interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// DynamoAPI is the subset of the DynamoDB client used by the ledger.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type DynamoMessageLedger struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
}

func NewDynamoMessageLedger(client DynamoAPI, table string, ttl time.Duration) *DynamoMessageLedger {
	return &DynamoMessageLedger{client: client, table: table, ttl: ttl}
}

type ddbProcessedMessage struct {
	MessageID   string `dynamodbav:"message_id"`
	ProcessedAt string `dynamodbav:"processed_at"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
}

func (l *DynamoMessageLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"message_id": messageID})
	if err != nil {
		return false, fmt.Errorf("marshal key: %w", err)
	}
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &l.table,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	return len(out.Item) > 0, nil
}

// MarkProcessed records messageID. Recording the same id twice is not an
// error.
func (l *DynamoMessageLedger) MarkProcessed(ctx context.Context, messageID string) error {
	now := time.Now().UTC()
	item, err := attributevalue.MarshalMap(ddbProcessedMessage{
		MessageID:   messageID,
		ProcessedAt: now.Format(time.RFC3339),
		ExpiresAt:   now.Add(l.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal processed message: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &l.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(message_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}
