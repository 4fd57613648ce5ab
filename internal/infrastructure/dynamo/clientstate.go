package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/biopass-web/internal/domain"
)

// ClientStateRepo stores each client's persisted key/value namespace.
// PK: client_id, SK: key
type ClientStateRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewClientStateRepo(client API, tableName string) *ClientStateRepo {
	return &ClientStateRepo{client: client, tableName: tableName, now: time.Now}
}

// Get returns the value under key. DynamoDB deletes TTL'd items lazily, so
// items past expires_at are reported as missing here.
func (r *ClientStateRepo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey("client_id", clientID, "key", key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("get client state: %w", err)
	}
	if out.Item == nil {
		return "", false, nil
	}
	var item domain.ClientStateItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, fmt.Errorf("unmarshal client state: %w", err)
	}
	if item.ExpiresAt != 0 && item.ExpiresAt <= r.now().Unix() {
		return "", false, nil
	}
	return item.Value, true, nil
}

// Put overwrites the value under key. A zero expiresAt stores the item without TTL.
func (r *ClientStateRepo) Put(ctx context.Context, clientID, key, value string, expiresAt time.Time) error {
	item := domain.ClientStateItem{ClientID: clientID, Key: key, Value: value}
	if !expiresAt.IsZero() {
		item.ExpiresAt = expiresAt.Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal client state: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	return err
}

func (r *ClientStateRepo) Delete(ctx context.Context, clientID, key string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("client_id", clientID, "key", key),
	})
	return err
}

// DeleteAll removes every key stored for clientID.
func (r *ClientStateRepo) DeleteAll(ctx context.Context, clientID string) error {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("client_id = :cid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cid": strValue(clientID),
			},
			ProjectionExpression:     aws.String("#k"),
			ExpressionAttributeNames: map[string]string{"#k": "key"},
			ExclusiveStartKey:        startKey,
		})
		if err != nil {
			return fmt.Errorf("query client state: %w", err)
		}
		for _, it := range out.Items {
			k, ok := it["key"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Delete(ctx, clientID, k.Value); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}
