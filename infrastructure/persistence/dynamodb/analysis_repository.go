package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/infrastructure/persistence/schema"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// batchMaxItems is the DynamoDB BatchWriteItem limit.
const batchMaxItems = 25

// AnalysisRepository implements ports.AnalysisRepository on a single table.
//
// Layout:
//
//	PK      USER#<userID>        SK      ANALYSIS#<analysisID>
//	GSI1PK  USER#<userID>        GSI1SK  GENERATED#<millis-padded>#<analysisID>
//
// The GSI keeps a user's analyses ordered by generation time so listings can
// run newest first without a client-side sort.
type AnalysisRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

var _ ports.AnalysisRepository = (*AnalysisRepository)(nil)

// NewAnalysisRepository creates a DynamoDB-backed analysis repository.
func NewAnalysisRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// analysisItem is the DynamoDB item for one stored analysis. The full record
// document travels in Document; the rest are key and index attributes plus a
// few fields admin tooling filters on.
type analysisItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	GSI1PK        string `dynamodbav:"GSI1PK"`
	GSI1SK        string `dynamodbav:"GSI1SK"`
	EntityType    string `dynamodbav:"EntityType"`
	AnalysisID    string `dynamodbav:"AnalysisID"`
	UserID        string `dynamodbav:"UserID"`
	Chart1Label   string `dynamodbav:"Chart1Label"`
	Chart2Label   string `dynamodbav:"Chart2Label"`
	SchemaVersion int    `dynamodbav:"SchemaVersion"`
	Document      []byte `dynamodbav:"Document"`
	GeneratedAt   int64  `dynamodbav:"GeneratedAt"` // unix millis, used by purge filters
	SystemVersion string `dynamodbav:"SystemVersion"`
	Version       int    `dynamodbav:"Version"`
}

func analysisPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func analysisSK(analysisID string) string {
	return fmt.Sprintf("ANALYSIS#%s", analysisID)
}

// generatedSK builds the GSI sort key. Millis are zero-padded so the string
// order matches the numeric order.
func generatedSK(generatedAt time.Time, analysisID string) string {
	return fmt.Sprintf("GENERATED#%020d#%s", generatedAt.UnixMilli(), analysisID)
}

// Save persists a freshly generated analysis.
func (r *AnalysisRepository) Save(ctx context.Context, analysis *aggregates.RelationshipAnalysis) error {
	document, err := schema.NewAnalysisRecord(analysis).Encode()
	if err != nil {
		return pkgerrors.NewDatabaseError("encode analysis", err)
	}

	item := analysisItem{
		PK:            analysisPK(analysis.UserID().String()),
		SK:            analysisSK(analysis.ID().String()),
		GSI1PK:        analysisPK(analysis.UserID().String()),
		GSI1SK:        generatedSK(analysis.GeneratedAt(), analysis.ID().String()),
		EntityType:    "ANALYSIS",
		AnalysisID:    analysis.ID().String(),
		UserID:        analysis.UserID().String(),
		Chart1Label:   analysis.Chart1Label().String(),
		Chart2Label:   analysis.Chart2Label().String(),
		SchemaVersion: schema.CurrentVersion,
		Document:      document,
		GeneratedAt:   analysis.GeneratedAt().UnixMilli(),
		SystemVersion: analysis.SystemVersion(),
		Version:       analysis.Version(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal analysis item", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("failed to save analysis",
			zap.Error(err),
			zap.String("analysisId", analysis.ID().String()),
			zap.String("userId", analysis.UserID().String()),
		)
		return pkgerrors.NewDatabaseError("save analysis", err)
	}

	r.logger.Debug("analysis saved",
		zap.String("analysisId", analysis.ID().String()),
		zap.String("userId", analysis.UserID().String()),
		zap.Int("schemaVersion", schema.CurrentVersion),
	)

	return nil
}

// FindByID retrieves one analysis owned by the user.
func (r *AnalysisRepository) FindByID(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) (*aggregates.RelationshipAnalysis, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: analysisPK(userID.String())},
			"SK": &types.AttributeValueMemberS{Value: analysisSK(id.String())},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get analysis", err)
	}

	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("analysis")
	}

	var item analysisItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal analysis item", err)
	}

	return itemToDomain(&item)
}

// FindByUser lists the user's analyses, newest first. The page token is the
// base64 form of DynamoDB's LastEvaluatedKey.
func (r *AnalysisRepository) FindByUser(ctx context.Context, userID valueobjects.UserID, page ports.ListPage) ([]*aggregates.RelationshipAnalysis, string, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(analysisPK(userID.String())))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, "", pkgerrors.NewDatabaseError("build list expression", err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false), // newest first
		Limit:                     aws.Int32(int32(limit)),
	}

	if page.NextToken != "" {
		startKey, err := decodePageToken(page.NextToken)
		if err != nil {
			return nil, "", pkgerrors.NewValidationError("invalid pagination token")
		}
		input.ExclusiveStartKey = startKey
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", pkgerrors.NewDatabaseError("list analyses", err)
	}

	analyses := make([]*aggregates.RelationshipAnalysis, 0, len(result.Items))
	for _, raw := range result.Items {
		var item analysisItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("skipping malformed analysis item", zap.Error(err))
			continue
		}
		analysis, err := itemToDomain(&item)
		if err != nil {
			r.logger.Warn("skipping unreadable analysis record",
				zap.String("analysisId", item.AnalysisID),
				zap.Error(err),
			)
			continue
		}
		analyses = append(analyses, analysis)
	}

	nextToken := ""
	if result.LastEvaluatedKey != nil {
		nextToken, err = encodePageToken(result.LastEvaluatedKey)
		if err != nil {
			return nil, "", pkgerrors.NewDatabaseError("encode pagination token", err)
		}
	}

	return analyses, nextToken, nil
}

// Delete removes one analysis owned by the user.
func (r *AnalysisRepository) Delete(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: analysisPK(userID.String())},
			"SK": &types.AttributeValueMemberS{Value: analysisSK(id.String())},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return pkgerrors.NewNotFoundError("analysis")
		}
		return pkgerrors.NewDatabaseError("delete analysis", err)
	}

	r.logger.Debug("analysis deleted",
		zap.String("analysisId", id.String()),
		zap.String("userId", userID.String()),
	)

	return nil
}

// DeleteBatch removes multiple analyses owned by the user. Missing IDs are
// skipped silently; DynamoDB delete requests are idempotent.
func (r *AnalysisRepository) DeleteBatch(ctx context.Context, userID valueobjects.UserID, ids []valueobjects.AnalysisID) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: analysisPK(userID.String())},
			"SK": &types.AttributeValueMemberS{Value: analysisSK(id.String())},
		})
	}

	if err := r.batchDelete(ctx, keys); err != nil {
		return err
	}

	r.logger.Debug("analyses batch deleted",
		zap.String("userId", userID.String()),
		zap.Int("count", len(ids)),
	)

	return nil
}

// PurgeOlderThan removes every analysis generated before the cutoff, across
// all users. With dryRun it only counts what would go.
func (r *AnalysisRepository) PurgeOlderThan(ctx context.Context, before time.Time, dryRun bool) (int, error) {
	filter := expression.And(
		expression.Name("EntityType").Equal(expression.Value("ANALYSIS")),
		expression.Name("GeneratedAt").LessThan(expression.Value(before.UnixMilli())),
	)
	proj := expression.NamesList(expression.Name("PK"), expression.Name("SK"))
	expr, err := expression.NewBuilder().WithFilter(filter).WithProjection(proj).Build()
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("build purge expression", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	count := 0
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return count, pkgerrors.NewDatabaseError("scan analyses for purge", err)
		}

		count += len(result.Items)

		if !dryRun && len(result.Items) > 0 {
			keys := make([]map[string]types.AttributeValue, 0, len(result.Items))
			for _, item := range result.Items {
				keys = append(keys, map[string]types.AttributeValue{
					"PK": item["PK"],
					"SK": item["SK"],
				})
			}
			if err := r.batchDelete(ctx, keys); err != nil {
				return count, err
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	r.logger.Info("purge pass finished",
		zap.Time("cutoff", before),
		zap.Bool("dryRun", dryRun),
		zap.Int("matched", count),
	)

	return count, nil
}

func (r *AnalysisRepository) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	if err := batchDeleteKeys(ctx, r.client, r.tableName, keys); err != nil {
		return pkgerrors.NewDatabaseError("batch delete analyses", err)
	}
	return nil
}

// itemToDomain decodes the stored document and rebuilds the aggregate.
func itemToDomain(item *analysisItem) (*aggregates.RelationshipAnalysis, error) {
	record, err := schema.DecodeAnalysisRecord(item.Document)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("decode analysis document", err)
	}
	return record.ToDomain()
}

// pageToken is the serializable form of a DynamoDB evaluated key.
type pageToken struct {
	PK     string `json:"pk"`
	SK     string `json:"sk"`
	GSI1PK string `json:"gsi1pk"`
	GSI1SK string `json:"gsi1sk"`
}

func encodePageToken(key map[string]types.AttributeValue) (string, error) {
	token := pageToken{}
	fields := map[string]*string{
		"PK":     &token.PK,
		"SK":     &token.SK,
		"GSI1PK": &token.GSI1PK,
		"GSI1SK": &token.GSI1SK,
	}
	for name, dst := range fields {
		member, ok := key[name].(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("evaluated key missing attribute %s", name)
		}
		*dst = member.Value
	}

	data, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodePageToken(encoded string) (map[string]types.AttributeValue, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	var token pageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	if token.PK == "" || token.SK == "" || token.GSI1PK == "" || token.GSI1SK == "" {
		return nil, fmt.Errorf("pagination token is incomplete")
	}

	return map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: token.PK},
		"SK":     &types.AttributeValueMemberS{Value: token.SK},
		"GSI1PK": &types.AttributeValueMemberS{Value: token.GSI1PK},
		"GSI1SK": &types.AttributeValueMemberS{Value: token.GSI1SK},
	}, nil
}
