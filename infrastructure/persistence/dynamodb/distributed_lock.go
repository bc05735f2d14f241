package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"astraea-backend/application/ports"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DistributedLock implements ports.UnitLock with DynamoDB conditional writes.
// One lock row per resource; expiry rides on the row's ExpiresAt so a crashed
// holder cannot wedge the resource, and DynamoDB TTL eventually removes stale
// rows entirely.
type DistributedLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.UnitLock = (*DistributedLock)(nil)

// LockRecord is the stored form of one held lock.
type LockRecord struct {
	PK         string `dynamodbav:"PK"` // LOCK#<resource>
	SK         string `dynamodbav:"SK"` // LOCK
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// NewDistributedLock creates a DynamoDB-backed unit lock.
func NewDistributedLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Acquire takes the lock for the resource, or returns ports.ErrLockHeld when
// a live lease exists. Timestamps are UTC so the string comparison in the
// condition expression orders correctly.
func (dl *DistributedLock) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.LockLease, error) {
	lockID := fmt.Sprintf("%s_%d", owner, time.Now().UnixNano())
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	record := LockRecord{
		PK:         lockPK(resource),
		SK:         "LOCK",
		LockID:     lockID,
		Owner:      owner,
		AcquiredAt: now.Format(time.RFC3339),
		ExpiresAt:  expiresAt.Format(time.RFC3339),
		TTL:        expiresAt.Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("marshal lock record", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(dl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := dl.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			dl.logger.Debug("lock already held",
				zap.String("resource", resource),
				zap.String("owner", owner),
			)
			return nil, ports.ErrLockHeld
		}
		return nil, pkgerrors.NewDatabaseError("acquire lock", err)
	}

	dl.logger.Debug("lock acquired",
		zap.String("resource", resource),
		zap.String("lockId", lockID),
		zap.String("owner", owner),
		zap.Duration("ttl", ttl),
	)

	return &lockLease{
		lock:     dl,
		resource: resource,
		lockID:   lockID,
		owner:    owner,
	}, nil
}

// releaseLock deletes the lock row if this lease still owns it. A failed
// condition means the lease expired and someone else holds a newer lock;
// that is not an error from the releaser's point of view.
func (dl *DistributedLock) releaseLock(ctx context.Context, resource, lockID, owner string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(dl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lockPK(resource)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
			":owner":  &types.AttributeValueMemberS{Value: owner},
		},
	}

	if _, err := dl.client.DeleteItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			dl.logger.Warn("lock already released or held by another lease",
				zap.String("resource", resource),
				zap.String("lockId", lockID),
				zap.String("owner", owner),
			)
			return nil
		}
		return pkgerrors.NewDatabaseError("release lock", err)
	}

	dl.logger.Debug("lock released",
		zap.String("resource", resource),
		zap.String("lockId", lockID),
		zap.String("owner", owner),
	)

	return nil
}

func lockPK(resource string) string {
	return fmt.Sprintf("LOCK#%s", resource)
}

// lockLease is a held lock. Release is safe to call more than once; the
// conditional delete turns a stale release into a no-op.
type lockLease struct {
	lock     *DistributedLock
	resource string
	lockID   string
	owner    string
}

var _ ports.LockLease = (*lockLease)(nil)

func (l *lockLease) Release(ctx context.Context) error {
	return l.lock.releaseLock(ctx, l.resource, l.lockID, l.owner)
}
