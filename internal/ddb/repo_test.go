package ddb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// --- Mock DynamoDB client ---

type mockAPI struct {
	putFn    func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	getFn    func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	updateFn func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	queryFn  func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
}

func (m *mockAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.putFn(in)
}

func (m *mockAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.getFn(in)
}

func (m *mockAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.updateFn(in)
}

func (m *mockAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.queryFn(in)
}

func ccf() error {
	return &types.ConditionalCheckFailedException{Message: awsStr("The conditional request failed")}
}

func sval(t *testing.T, item map[string]types.AttributeValue, k string) string {
	t.Helper()
	v, ok := item[k].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %s is not a string", k)
	return v.Value
}

func mustItem(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

var submitted = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

// --- ClaimRepo ---

func TestClaimRepo_InsertSetsKeys(t *testing.T) {
	var got *dynamodb.PutItemInput
	api := &mockAPI{putFn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		got = in
		return &dynamodb.PutItemOutput{}, nil
	}}
	repo := NewClaimRepo(api, "claims")

	err := repo.Insert(context.Background(), models.Claim{ID: "FC123456", Status: models.StatusNew, SubmittedAt: submitted})
	require.NoError(t, err)

	assert.Equal(t, "claims", *got.TableName)
	assert.Equal(t, "CLAIM#FC123456", sval(t, got.Item, "PK"))
	assert.Equal(t, "META", sval(t, got.Item, "SK"))
	assert.Equal(t, "CLAIMS", sval(t, got.Item, "GSI1PK"))
	assert.Equal(t, "2026-10-01T09:30:00.000000000Z#FC123456", sval(t, got.Item, "GSI1SK"))
	assert.Contains(t, *got.ConditionExpression, "attribute_not_exists(PK)")

	docs, ok := got.Item["documents"].(*types.AttributeValueMemberL)
	require.True(t, ok, "documents must be stored as a list so list_append works")
	assert.Empty(t, docs.Value)
}

func TestClaimRepo_InsertConflict(t *testing.T) {
	api := &mockAPI{putFn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, ccf()
	}}
	err := NewClaimRepo(api, "claims").Insert(context.Background(), models.Claim{ID: "FC123456"})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestClaimRepo_InsertOtherError(t *testing.T) {
	api := &mockAPI{putFn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, errors.New("throttled")
	}}
	err := NewClaimRepo(api, "claims").Insert(context.Background(), models.Claim{ID: "FC123456"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, lifecycle.ErrConflict)
}

func TestClaimRepo_Get(t *testing.T) {
	stored := models.Claim{ID: "FC123456", Status: models.StatusPending, Name: "Jane Doe", SubmittedAt: submitted}
	api := &mockAPI{getFn: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		if sval(t, in.Key, "PK") == "CLAIM#FC123456" {
			return &dynamodb.GetItemOutput{Item: mustItem(t, stored)}, nil
		}
		return &dynamodb.GetItemOutput{}, nil
	}}
	repo := NewClaimRepo(api, "claims")

	c, err := repo.Get(context.Background(), "FC123456")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "Jane Doe", c.Name)
	assert.True(t, submitted.Equal(c.SubmittedAt))

	_, err = repo.Get(context.Background(), "FC999999")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestClaimRepo_UpdateStatusResolved(t *testing.T) {
	var got *dynamodb.UpdateItemInput
	api := &mockAPI{updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		got = in
		return &dynamodb.UpdateItemOutput{Attributes: mustItem(t, models.Claim{ID: "FC123456", Status: models.StatusResolved})}, nil
	}}
	st := models.StatusResolved
	now := submitted.Add(time.Hour)

	c, err := NewClaimRepo(api, "claims").Update(context.Background(), "FC123456", lifecycle.ClaimPatch{
		Status:            &st,
		ResolvedAtIfUnset: &now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, c.Status)

	assert.Equal(t, "SET #status = :status, #resolvedAt = if_not_exists(#resolvedAt, :resolvedAt)", *got.UpdateExpression)
	assert.Equal(t, "attribute_exists(PK)", *got.ConditionExpression)
	assert.Equal(t, "status", got.ExpressionAttributeNames["#status"])
	assert.Equal(t, types.ReturnValueAllNew, got.ReturnValues)
	assert.Equal(t, "resolved", got.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS).Value)
}

func TestClaimRepo_UpdateClearAssignee(t *testing.T) {
	var got *dynamodb.UpdateItemInput
	api := &mockAPI{updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		got = in
		return &dynamodb.UpdateItemOutput{Attributes: mustItem(t, models.Claim{ID: "FC123456"})}, nil
	}}
	empty := ""

	_, err := NewClaimRepo(api, "claims").Update(context.Background(), "FC123456", lifecycle.ClaimPatch{AssignedTo: &empty})
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #assignedTo", *got.UpdateExpression)
	assert.Nil(t, got.ExpressionAttributeValues)
}

func TestClaimRepo_UpdateMissingClaim(t *testing.T) {
	api := &mockAPI{updateFn: func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return nil, ccf()
	}}
	r := models.ResolutionApproved
	_, err := NewClaimRepo(api, "claims").Update(context.Background(), "FC123456", lifecycle.ClaimPatch{Resolution: &r})
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestClaimRepo_AppendDocuments(t *testing.T) {
	var got *dynamodb.UpdateItemInput
	api := &mockAPI{updateFn: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		got = in
		return &dynamodb.UpdateItemOutput{Attributes: mustItem(t, models.Claim{ID: "FC123456", Version: 2})}, nil
	}}
	docs := []models.Document{{Name: "a.pdf", Type: "application/pdf", Size: 3, URL: "u", Key: "k"}}

	c, err := NewClaimRepo(api, "claims").AppendDocuments(context.Background(), "FC123456", docs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Version)
	assert.Contains(t, *got.UpdateExpression, "list_append(if_not_exists(#documents, :empty), :docs)")
	list, ok := got.ExpressionAttributeValues[":docs"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	assert.Len(t, list.Value, 1)
}

func TestClaimRepo_ListPaginates(t *testing.T) {
	page1 := []map[string]types.AttributeValue{mustItem(t, models.Claim{ID: "FC200000"})}
	page2 := []map[string]types.AttributeValue{mustItem(t, models.Claim{ID: "FC100000"})}
	calls := 0
	api := &mockAPI{queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		calls++
		assert.Equal(t, GSI1, *in.IndexName)
		assert.False(t, *in.ScanIndexForward)
		if in.ExclusiveStartKey == nil {
			return &dynamodb.QueryOutput{Items: page1, LastEvaluatedKey: keyOf(ClaimKeys("FC200000"))}, nil
		}
		return &dynamodb.QueryOutput{Items: page2}, nil
	}}

	claims, err := NewClaimRepo(api, "claims").List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, claims, 2)
	assert.Equal(t, "FC200000", claims[0].ID)
	assert.Equal(t, "FC100000", claims[1].ID)
}

// --- LogRepo ---

func TestLogKeys_SortByTime(t *testing.T) {
	_, early := LogKeys("FC1", submitted, "b")
	_, late := LogKeys("FC1", submitted.Add(1500*time.Millisecond), "a")
	_, later := LogKeys("FC1", submitted.Add(10*time.Second), "a")
	assert.Less(t, early, late)
	assert.Less(t, late, later)
}

func TestLogRepo_Append(t *testing.T) {
	var got *dynamodb.PutItemInput
	api := &mockAPI{putFn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		got = in
		return &dynamodb.PutItemOutput{}, nil
	}}
	e := models.ActivityLogEntry{ID: "log-1", ClaimID: "FC123456", Timestamp: submitted, User: "System",
		Action: models.ActionClaimSubmitted, Details: "New claim FC123456 received from Jane Doe"}

	require.NoError(t, NewLogRepo(api, "claims").Append(context.Background(), e))
	assert.Equal(t, "CLAIM#FC123456", sval(t, got.Item, "PK"))
	assert.Equal(t, "LOG#2026-10-01T09:30:00.000000000Z#log-1", sval(t, got.Item, "SK"))
	assert.Equal(t, "Claim submitted", sval(t, got.Item, "action"))
}

func TestLogRepo_ListByClaim(t *testing.T) {
	newer := models.ActivityLogEntry{ID: "2", ClaimID: "FC123456", Timestamp: submitted.Add(time.Minute), Action: models.ActionStatusUpdated}
	older := models.ActivityLogEntry{ID: "1", ClaimID: "FC123456", Timestamp: submitted, Action: models.ActionClaimSubmitted}
	api := &mockAPI{queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		assert.False(t, *in.ScanIndexForward)
		assert.Equal(t, "PK = :pk AND begins_with(SK, :log)", *in.KeyConditionExpression)
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{mustItem(t, newer), mustItem(t, older)}}, nil
	}}

	entries, err := NewLogRepo(api, "claims").ListByClaim(context.Background(), "FC123456")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionStatusUpdated, entries[0].Action)
	assert.Equal(t, models.ActionClaimSubmitted, entries[1].Action)
}

// --- AssigneeRepo ---

func TestAssigneeRepo(t *testing.T) {
	var put *dynamodb.PutItemInput
	api := &mockAPI{
		putFn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			put = in
			return &dynamodb.PutItemOutput{}, nil
		},
		queryFn: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, "#active = :true", *in.FilterExpression)
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				mustItem(t, models.Assignee{ID: "1", Name: "Vikas", Active: true}),
			}}, nil
		},
	}
	repo := NewAssigneeRepo(api, "claims")

	a, err := repo.Add(context.Background(), " Piyush ", "piyush@fairclaim.in")
	require.NoError(t, err)
	assert.Equal(t, "Piyush", a.Name)
	assert.True(t, a.Active)
	assert.Equal(t, "ASSIGNEE", sval(t, put.Item, "PK"))
	assert.Equal(t, "ASSIGNEE#"+a.ID, sval(t, put.Item, "SK"))

	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Vikas", active[0].Name)
}
