package pairing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore reads device-pair records from a DynamoDB table keyed by pair
// id. Used by deployments that keep pairings in DynamoDB instead of Postgres.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

type dynamoRecord struct {
	ID          string `dynamodbav:"id"`
	Status      string `dynamodbav:"status"`
	OwnerUserID string `dynamodbav:"user_id"`
}

func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) Lookup(ctx context.Context, pairID string) (Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: pairID},
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("get pairing item: %w", err)
	}
	if out.Item == nil {
		return Record{}, ErrNotFound
	}

	var item dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Record{}, fmt.Errorf("unmarshal pairing item: %w", err)
	}
	return Record{
		ID:          item.ID,
		Status:      Status(item.Status),
		OwnerUserID: item.OwnerUserID,
	}, nil
}
