package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// dynamoItem is the table layout. expires_at should be configured as the
// table's TTL attribute; DynamoDB deletes lazily, so reads check it too.
type dynamoItem struct {
	Key       string `dynamodbav:"cache_key"`
	Payload   []byte `dynamodbav:"payload"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// DynamoBackend stores entries in a DynamoDB table keyed by cache_key.
type DynamoBackend struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

// NewDynamoBackend panics on a nil client or empty table name.
func NewDynamoBackend(client dynamoAPI, tableName string) *DynamoBackend {
	if client == nil {
		panic("cache: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("cache: table name cannot be empty")
	}
	return &DynamoBackend{client: client, tableName: tableName, now: time.Now}
}

func (b *DynamoBackend) Name() string { return "dynamodb" }

func (b *DynamoBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(b.tableName),
		Key: map[string]types.AttributeValue{
			"cache_key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: dynamodb get: %w", err)
	}
	if out.Item == nil {
		return nil, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, fmt.Errorf("cache: decode dynamodb item: %w", err)
	}
	if item.ExpiresAt <= b.now().Unix() {
		return nil, false, nil
	}
	return item.Payload, true, nil
}

func (b *DynamoBackend) Set(ctx context.Context, key string, value []byte, expiry time.Time) error {
	av, err := attributevalue.MarshalMap(dynamoItem{
		Key:       key,
		Payload:   value,
		ExpiresAt: expiry.Unix(),
	})
	if err != nil {
		return fmt.Errorf("cache: encode dynamodb item: %w", err)
	}
	_, err = b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("cache: dynamodb put: %w", err)
	}
	return nil
}
