// Package main implements the WebSocket $connect Lambda. Connections are
// authenticated against Supabase and recorded in DynamoDB with a TTL so
// stale entries expire on their own even if $disconnect never fires.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/supabase-community/supabase-go"
)

var (
	dbClient         *dynamodb.Client
	supabaseClient   *supabase.Client
	connectionsTable string
)

// connectionTTL bounds how long a record can outlive its socket.
const connectionTTL = 2 * time.Hour

func init() {
	connectionsTable = os.Getenv("CONNECTIONS_TABLE_NAME")
	supabaseURL := os.Getenv("SUPABASE_URL")
	// Backend validation needs the service role key, not the anon key.
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")

	if connectionsTable == "" || supabaseURL == "" || supabaseKey == "" {
		log.Fatalf("FATAL: CONNECTIONS_TABLE_NAME, SUPABASE_URL, and SUPABASE_SERVICE_ROLE_KEY must be set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Unable to load SDK config: %v", err)
	}
	dbClient = dynamodb.NewFromConfig(awsCfg)

	client, err := supabase.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		log.Fatalf("Unable to create Supabase client: %v", err)
	}
	supabaseClient = client
}

func handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, ok := req.QueryStringParameters["token"]
	if !ok || token == "" {
		log.Println("WARN: connection request missing token")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized}, nil
	}

	// WithToken scopes the call to the caller's JWT; GetUser rejects
	// expired or forged tokens.
	user, err := supabaseClient.Auth.WithToken(token).GetUser()
	if err != nil {
		log.Printf("ERROR: invalid token: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized}, nil
	}

	userID := user.ID.String()
	connectionID := req.RequestContext.ConnectionID
	endpoint := fmt.Sprintf("https://%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage)
	expireAt := time.Now().Add(connectionTTL).Unix()

	// PK groups a user's live connections for the notify fan-out; the GSI
	// inverts the key so $disconnect can find the row by connection ID.
	_, err = dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(connectionsTable),
		Item: map[string]types.AttributeValue{
			"PK":       &types.AttributeValueMemberS{Value: "USER#" + userID},
			"SK":       &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
			"GSI1PK":   &types.AttributeValueMemberS{Value: "CONN#" + connectionID},
			"GSI1SK":   &types.AttributeValueMemberS{Value: "USER#" + userID},
			"endpoint": &types.AttributeValueMemberS{Value: endpoint},
			"expireAt": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expireAt)},
		},
	})
	if err != nil {
		log.Printf("ERROR: failed to save connection: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	log.Printf("connected user %s with connection %s", userID, connectionID)
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

func main() {
	lambda.Start(handler)
}
