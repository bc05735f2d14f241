package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// batchDeleteKeys issues BatchWriteItem deletes in chunks of 25, retrying
// unprocessed keys with a short backoff. Callers wrap the returned error
// with their own operation name.
func batchDeleteKeys(ctx context.Context, client *dynamodb.Client, tableName string, keys []map[string]types.AttributeValue) error {
	for start := 0; start < len(keys); start += batchMaxItems {
		end := start + batchMaxItems
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		for attempt := 0; len(requests) > 0; attempt++ {
			result, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{tableName: requests},
			})
			if err != nil {
				return err
			}

			requests = result.UnprocessedItems[tableName]
			if len(requests) == 0 {
				break
			}
			if attempt >= 2 {
				return fmt.Errorf("%d keys unprocessed after %d attempts", len(requests), attempt+1)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
			}
		}
	}

	return nil
}
