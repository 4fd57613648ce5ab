package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/biopass-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Put(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).Return(&dynamodb.PutItemOutput{}, nil)

	err := NewAuditRepo(api, "audit_events").Put(context.Background(), &domain.AuditEvent{
		ClientID:  "c1",
		EventID:   "01HZ",
		Action:    domain.AuditOTPSent,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	in := api.Calls[0].Arguments.Get(1).(*dynamodb.PutItemInput)
	assert.Equal(t, "audit_events", *in.TableName)
	action, ok := in.Item["action"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "otp_sent", action.Value)
	_, hasDetail := in.Item["detail"]
	assert.False(t, hasDetail)
}

func TestAuditRepo_ListByClient_NewestFirst(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ScanIndexForward != nil && !*in.ScanIndexForward && *in.Limit == 20
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			{
				"client_id": &types.AttributeValueMemberS{Value: "c1"},
				"event_id":  &types.AttributeValueMemberS{Value: "02"},
				"action":    &types.AttributeValueMemberS{Value: domain.AuditLogout},
			},
		},
	}, nil)

	events, err := NewAuditRepo(api, "t").ListByClient(context.Background(), "c1", 20)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuditLogout, events[0].Action)
}
