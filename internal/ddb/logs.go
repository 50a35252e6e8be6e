package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// LogRepo is the append-only activity log.
type LogRepo struct{ Repo }

// NewLogRepo returns a LogRepo over table.
func NewLogRepo(db API, table string) *LogRepo {
	return &LogRepo{Repo{DB: db, Table: table}}
}

// Append writes e. Existing entries are never overwritten.
func (r *LogRepo) Append(ctx context.Context, e models.ActivityLogEntry) error {
	e.PK, e.SK = LogKeys(e.ClaimID, e.Timestamp, e.ID)
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("append log %s/%s: %w", e.ClaimID, e.ID, conditionFailed(err, lifecycle.ErrConflict))
	}
	return nil
}

// ListByClaim returns the entries of one claim, newest first.
func (r *LogRepo) ListByClaim(ctx context.Context, claimID string) ([]models.ActivityLogEntry, error) {
	pk, _ := ClaimKeys(claimID)
	items, err := queryAll(ctx, r.DB, &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: awsStr("PK = :pk AND begins_with(SK, :log)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: pk},
			":log": &types.AttributeValueMemberS{Value: logPrefix},
		},
		ScanIndexForward: aws.Bool(false),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("list logs %s: %w", claimID, err)
	}
	entries := make([]models.ActivityLogEntry, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &entries); err != nil {
		return nil, fmt.Errorf("decode logs %s: %w", claimID, err)
	}
	return entries, nil
}
