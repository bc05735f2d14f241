// Package main implements the WebSocket notification Lambda. It consumes
// analysis lifecycle events from EventBridge and pushes them to the
// requesting user's live connections, pruning connections that have gone
// away.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"astraea-backend/domain/events"
)

var (
	awsCfg           aws.Config
	dynamoClient     *dynamodb.Client
	connectionsTable string
)

// clientMessage is the envelope pushed to browsers.
type clientMessage struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// connection is one live WebSocket recorded by the $connect handler.
type connection struct {
	sortKey  string
	id       string
	endpoint string
}

func init() {
	connectionsTable = os.Getenv("CONNECTIONS_TABLE_NAME")
	if connectionsTable == "" {
		log.Fatalf("FATAL: CONNECTIONS_TABLE_NAME must be set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Unable to load SDK config: %v", err)
	}
	awsCfg = cfg
	dynamoClient = dynamodb.NewFromConfig(cfg)
}

func handler(ctx context.Context, event awsevents.CloudWatchEvent) error {
	userID, err := eventUser(event)
	if err != nil {
		// Undeliverable by construction; retrying cannot help.
		log.Printf("WARN: skipping event %s: %v", event.DetailType, err)
		return nil
	}

	conns, err := connectionsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load connections for user: %w", err)
	}
	if len(conns) == 0 {
		log.Printf("no live connections for user %s, dropping %s", userID, event.DetailType)
		return nil
	}

	payload, err := json.Marshal(clientMessage{
		Type:      event.DetailType,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(event.Detail),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal client message: %w", err)
	}

	clients := make(map[string]*apigatewaymanagementapi.Client)
	sent, failed := 0, 0

	for _, conn := range conns {
		client, ok := clients[conn.endpoint]
		if !ok {
			client = managementClient(conn.endpoint)
			clients[conn.endpoint] = client
		}

		_, err := client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(conn.id),
			Data:         payload,
		})
		if err != nil {
			var gone *apigwtypes.GoneException
			if errors.As(err, &gone) {
				// Socket already closed; remove the record now instead of
				// waiting for the TTL.
				removeStaleConnection(ctx, userID, conn.sortKey)
				continue
			}
			log.Printf("failed to push to connection %s: %v", conn.id, err)
			failed++
			continue
		}
		sent++
	}

	log.Printf("pushed %s to user %s: %d sent, %d failed", event.DetailType, userID, sent, failed)

	if failed > 0 && sent == 0 {
		return fmt.Errorf("all pushes failed for user %s", userID)
	}
	return nil
}

// eventUser decodes the domain event and returns the user it belongs to.
func eventUser(event awsevents.CloudWatchEvent) (string, error) {
	decoded, err := events.Unmarshal(event.DetailType, event.Detail)
	if err != nil {
		return "", err
	}

	switch e := decoded.(type) {
	case events.AnalysisCompleted:
		return e.UserID, nil
	case events.AnalysisFailed:
		return e.UserID, nil
	default:
		return "", fmt.Errorf("event type %s is not pushed to clients", event.DetailType)
	}
}

// connectionsForUser queries the user's partition for live connections.
func connectionsForUser(ctx context.Context, userID string) ([]connection, error) {
	out, err := dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :conn)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: "USER#" + userID},
			":conn": &types.AttributeValueMemberS{Value: "CONN#"},
		},
	})
	if err != nil {
		return nil, err
	}

	conns := make([]connection, 0, len(out.Items))
	for _, item := range out.Items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}

		conn := connection{
			sortKey:  sk.Value,
			id:       strings.TrimPrefix(sk.Value, "CONN#"),
			endpoint: os.Getenv("WEBSOCKET_ENDPOINT"),
		}
		if ep, ok := item["endpoint"].(*types.AttributeValueMemberS); ok && ep.Value != "" {
			conn.endpoint = ep.Value
		}
		if conn.endpoint == "" {
			log.Printf("WARN: connection %s has no endpoint, skipping", conn.id)
			continue
		}
		conns = append(conns, conn)
	}

	return conns, nil
}

// managementClient builds a Management API client bound to one endpoint.
// Connections from different stages carry different endpoints, so clients
// are built per endpoint rather than once.
func managementClient(endpoint string) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
}

func removeStaleConnection(ctx context.Context, userID, sortKey string) {
	_, err := dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(connectionsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "USER#" + userID},
			"SK": &types.AttributeValueMemberS{Value: sortKey},
		},
	})
	if err != nil {
		log.Printf("failed to remove stale connection %s: %v", sortKey, err)
		return
	}
	log.Printf("removed stale connection %s", sortKey)
}

func main() {
	lambda.Start(handler)
}
