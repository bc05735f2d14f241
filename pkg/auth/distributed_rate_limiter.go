package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DistributedRateLimiter counts requests per fixed window in DynamoDB so
// the limit holds across Lambda invocations. Keys should come from UserKey
// or IPKey so both limiter flavors agree on attribution.
type DistributedRateLimiter struct {
	client    *dynamodb.Client
	tableName string
	limit     int
	window    time.Duration
	logger    *zap.Logger
}

const rateLimitSK = "RATELIMIT"

type rateLimitEntry struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Count     int    `dynamodbav:"Count"`
	WindowEnd string `dynamodbav:"WindowEnd"`
	TTL       int64  `dynamodbav:"TTL"`
}

// NewDistributedRateLimiter builds a limiter allowing requestsPerMinute
// requests per key per minute. A nil client disables limiting, which keeps
// local development working without a table.
func NewDistributedRateLimiter(client *dynamodb.Client, tableName string, requestsPerMinute int, logger *zap.Logger) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		tableName: tableName,
		limit:     requestsPerMinute,
		window:    time.Minute,
		logger:    logger,
	}
}

// Allow atomically increments the key's counter for the current window.
// The conditional update only succeeds below the limit, so concurrent
// invocations cannot overshoot. Storage failures fail open: blocking
// legitimate traffic is worse than briefly not throttling.
func (r *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return true, nil
	}

	windowStart := time.Now().Truncate(r.window)
	windowEnd := windowStart.Add(r.window)

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: r.pk(key, windowStart)},
			"SK": &types.AttributeValueMemberS{Value: rateLimitSK},
		},
		UpdateExpression:    aws.String("SET #count = if_not_exists(#count, :zero) + :one, WindowEnd = :end, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(#count) OR #count < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#count": "Count",
			"#ttl":   "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", r.limit)},
			":end":   &types.AttributeValueMemberS{Value: windowEnd.UTC().Format(time.RFC3339)},
			":ttl":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", windowEnd.Add(time.Hour).Unix())},
		},
	}

	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		r.logger.Warn("rate limit check failed, allowing request",
			zap.String("key", key),
			zap.Error(err))
		return true, nil
	}

	return true, nil
}

// Remaining reports how many requests the key has left in the current
// window and how long until the window resets.
func (r *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, time.Duration, error) {
	windowStart := time.Now().Truncate(r.window)
	windowEnd := windowStart.Add(r.window)

	if r.client == nil {
		return r.limit, time.Until(windowEnd), nil
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: r.pk(key, windowStart)},
			"SK": &types.AttributeValueMemberS{Value: rateLimitSK},
		},
	})
	if err != nil || out.Item == nil {
		return r.limit, time.Until(windowEnd), err
	}

	var entry rateLimitEntry
	if err := attributevalue.UnmarshalMap(out.Item, &entry); err != nil {
		return r.limit, time.Until(windowEnd), fmt.Errorf("unmarshal rate limit entry: %w", err)
	}

	remaining := r.limit - entry.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, time.Until(windowEnd), nil
}

// Reset clears the key's counter in the current window.
func (r *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}

	windowStart := time.Now().Truncate(r.window)
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: r.pk(key, windowStart)},
			"SK": &types.AttributeValueMemberS{Value: rateLimitSK},
		},
	})
	return err
}

// Limit returns the configured per-window request budget.
func (r *DistributedRateLimiter) Limit() int {
	return r.limit
}

// Headers returns the standard X-RateLimit response headers for the key.
func (r *DistributedRateLimiter) Headers(ctx context.Context, key string) (map[string]string, error) {
	remaining, resetIn, err := r.Remaining(ctx, key)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"X-RateLimit-Limit":     fmt.Sprintf("%d", r.limit),
		"X-RateLimit-Remaining": fmt.Sprintf("%d", remaining),
		"X-RateLimit-Reset":     fmt.Sprintf("%d", time.Now().Add(resetIn).Unix()),
	}, nil
}

func (r *DistributedRateLimiter) pk(key string, windowStart time.Time) string {
	return fmt.Sprintf("RATELIMIT#%s#%d", key, windowStart.Unix())
}
