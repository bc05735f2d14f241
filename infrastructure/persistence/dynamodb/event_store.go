package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// PublishStatus tracks where an event record stands in the outbox relay.
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"   // saved but not yet published
	PublishStatusPublished PublishStatus = "published" // delivered to the bus
	PublishStatusFailed    PublishStatus = "failed"    // gave up after maxPublishAttempts
)

// maxPublishAttempts is how many relay attempts an event gets before it is
// parked as failed.
const maxPublishAttempts = 3

// eventRetention is the TTL applied to event records. Expired rows disappear
// through DynamoDB's TTL sweeper, no purge job needed.
const eventRetention = 365 * 24 * time.Hour

// EventStore implements ports.EventStore with outbox bookkeeping. Events
// share the analysis table:
//
//	PK      EVENTS#<aggregateID>   SK      EVENT#<millis-padded>#<eventID>
//	GSI1PK  USER#<userID>          GSI1SK  EVENT#<millis-padded>#<eventID>
//	GSI2PK  EVENTTYPE#<type>       GSI2SK  EVENT#<millis-padded>#<eventID>
//
// Sort keys embed zero-padded unix millis so string order is time order.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
}

var _ ports.EventStore = (*EventStore)(nil)

// NewEventStore creates a DynamoDB-backed event store.
func NewEventStore(client *dynamodb.Client, tableName string) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
	}
}

// EventRecord is the stored form of one domain event plus its outbox state.
type EventRecord struct {
	PK            string                 `dynamodbav:"PK"`
	SK            string                 `dynamodbav:"SK"`
	EventID       string                 `dynamodbav:"EventID"`
	EventType     string                 `dynamodbav:"EventType"`
	AggregateID   string                 `dynamodbav:"AggregateID"`
	AggregateType string                 `dynamodbav:"AggregateType"`
	EventData     map[string]interface{} `dynamodbav:"EventData"`
	Timestamp     string                 `dynamodbav:"Timestamp"`
	Version       int                    `dynamodbav:"Version"`
	UserID        string                 `dynamodbav:"UserID"`

	// Outbox fields
	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	GSI2PK string `dynamodbav:"GSI2PK"`
	GSI2SK string `dynamodbav:"GSI2SK"`

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

func eventPK(aggregateID string) string {
	return fmt.Sprintf("EVENTS#%s", aggregateID)
}

func eventSK(timestamp time.Time, eventID string) string {
	return fmt.Sprintf("EVENT#%020d#%s", timestamp.UnixMilli(), eventID)
}

// SaveEvents persists domain events as pending outbox records.
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := eventToRecord(event)
		if err != nil {
			return pkgerrors.NewDatabaseError("encode event", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return pkgerrors.NewDatabaseError("marshal event record", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for start := 0; start < len(writeRequests); start += batchMaxItems {
		end := start + batchMaxItems
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{es.tableName: writeRequests[start:end]},
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("save events", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return pkgerrors.NewDatabaseError("save events",
				fmt.Errorf("%d events unprocessed", len(result.UnprocessedItems[es.tableName])))
		}
	}

	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first.
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: eventPK(aggregateID)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var all []events.DomainEvent
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query events", err)
		}

		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, pkgerrors.NewDatabaseError("unmarshal event record", err)
			}
			event, err := recordToEvent(record)
			if err != nil {
				return nil, pkgerrors.NewDatabaseError("decode event", err)
			}
			all = append(all, event)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return all, nil
}

// GetEventsByType retrieves the most recent events of one type via GSI2.
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("GSI2"),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTTYPE#%s", eventType)},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query events by type", err)
	}

	domainEvents := make([]events.DomainEvent, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, pkgerrors.NewDatabaseError("unmarshal event record", err)
		}
		event, err := recordToEvent(record)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("decode event", err)
		}
		domainEvents = append(domainEvents, event)
	}

	return domainEvents, nil
}

// DeleteEvents removes all events for an aggregate. Used when an analysis is
// deleted so no orphaned audit trail lingers past the record itself.
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	keys, err := es.collectEventKeys(ctx, aggregateID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := batchDeleteKeys(ctx, es.client, es.tableName, keys); err != nil {
		return pkgerrors.NewDatabaseError("batch delete events", err)
	}
	return nil
}

// DeleteEventsBatch removes all events for multiple aggregates.
func (es *EventStore) DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error {
	var keys []map[string]types.AttributeValue
	for _, aggregateID := range aggregateIDs {
		aggregateKeys, err := es.collectEventKeys(ctx, aggregateID)
		if err != nil {
			return err
		}
		keys = append(keys, aggregateKeys...)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := batchDeleteKeys(ctx, es.client, es.tableName, keys); err != nil {
		return pkgerrors.NewDatabaseError("batch delete events", err)
	}
	return nil
}

// collectEventKeys queries the primary keys of every event under one
// aggregate partition.
func (es *EventStore) collectEventKeys(ctx context.Context, aggregateID string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: eventPK(aggregateID)},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	var keys []map[string]types.AttributeValue
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query event keys", err)
		}

		for _, item := range result.Items {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			})
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return keys, nil
}

// eventToRecord converts a domain event to its stored form. The event's JSON
// form becomes the EventData map so new event fields never need a schema
// change here.
func eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	eventData := make(map[string]interface{})
	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("unmarshal event to map: %w", err)
	}

	userID := ""
	if v, ok := eventData["user_id"].(string); ok {
		userID = v
	}

	timestamp := event.GetTimestamp()
	eventID := uuid.New().String()
	sortKey := eventSK(timestamp, eventID)

	return &EventRecord{
		PK:            eventPK(event.GetAggregateID()),
		SK:            sortKey,
		EventID:       eventID,
		EventType:     event.GetEventType(),
		AggregateID:   event.GetAggregateID(),
		AggregateType: "analysis",
		EventData:     eventData,
		Timestamp:     timestamp.Format(time.RFC3339Nano),
		Version:       event.GetVersion(),
		UserID:        userID,

		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,

		GSI1PK: fmt.Sprintf("USER#%s", userID),
		GSI1SK: sortKey,
		GSI2PK: fmt.Sprintf("EVENTTYPE#%s", event.GetEventType()),
		GSI2SK: sortKey,

		TTL: timestamp.Add(eventRetention).Unix(),
	}, nil
}

// recordToEvent rebuilds the concrete event from a stored record.
func recordToEvent(record EventRecord) (events.DomainEvent, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse event timestamp: %w", err)
	}

	base := events.BaseEvent{
		AggregateID: record.AggregateID,
		EventType:   record.EventType,
		Timestamp:   timestamp,
		Version:     record.Version,
	}

	analysisID, _ := valueobjects.NewAnalysisIDFromString(stringField(record.EventData, "analysis_id"))
	userID := stringField(record.EventData, "user_id")

	switch record.EventType {
	case "analysis.requested":
		return events.AnalysisRequested{
			BaseEvent:   base,
			AnalysisID:  analysisID,
			UserID:      userID,
			Chart1Label: stringField(record.EventData, "chart1_label"),
			Chart2Label: stringField(record.EventData, "chart2_label"),
		}, nil

	case "analysis.completed":
		return events.AnalysisCompleted{
			BaseEvent:    base,
			AnalysisID:   analysisID,
			UserID:       userID,
			Chart1Label:  stringField(record.EventData, "chart1_label"),
			Chart2Label:  stringField(record.EventData, "chart2_label"),
			OverallScore: intField(record.EventData, "overall_score"),
			Rating:       stringField(record.EventData, "rating"),
		}, nil

	case "analysis.deleted":
		purged, _ := record.EventData["purged"].(bool)
		return events.AnalysisDeleted{
			BaseEvent:  base,
			AnalysisID: analysisID,
			UserID:     userID,
			Purged:     purged,
		}, nil

	case "analysis.failed":
		return events.AnalysisFailed{
			BaseEvent:  base,
			AnalysisID: analysisID,
			UserID:     userID,
			Stage:      stringField(record.EventData, "stage"),
			Reason:     stringField(record.EventData, "reason"),
		}, nil

	default:
		// Unknown types still round-trip as the base event.
		return base, nil
	}
}

func stringField(data map[string]interface{}, key string) string {
	v, _ := data[key].(string)
	return v
}

func intField(data map[string]interface{}, key string) int {
	// JSON numbers decode as float64.
	v, _ := data[key].(float64)
	return int(v)
}

// Outbox relay methods. These are not part of ports.EventStore; the outbox
// processor depends on this concrete type.

// GetPendingEvents retrieves events awaiting publication. A filtered scan is
// enough at this table's event volume.
func (es *EventStore) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	input := &dynamodb.ScanInput{
		TableName:        aws.String(es.tableName),
		FilterExpression: aws.String("PublishStatus = :status AND begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(PublishStatusPending)},
			":prefix": &types.AttributeValueMemberS{Value: "EVENTS#"},
		},
		Limit: aws.Int32(limit),
	}

	result, err := es.client.Scan(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("scan pending events", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue // skip malformed records
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkEventAsPublished records a successful relay.
func (es *EventStore) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	now := time.Now().Format(time.RFC3339)

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := es.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("mark event published", err)
	}

	return nil
}

// MarkEventAsFailed records a failed relay attempt. The event stays pending
// until it has burned maxPublishAttempts, then it is parked as failed.
func (es *EventStore) MarkEventAsFailed(ctx context.Context, eventPK, eventSK, errorMsg string, attempts int) error {
	now := time.Now().Format(time.RFC3339)

	status := string(PublishStatusFailed)
	if attempts < maxPublishAttempts {
		status = string(PublishStatusPending)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: status},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: now},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := es.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("mark event failed", err)
	}

	return nil
}
