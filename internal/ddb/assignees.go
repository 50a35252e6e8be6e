package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// AssigneeRepo stores staff that claims can be assigned to.
type AssigneeRepo struct{ Repo }

// NewAssigneeRepo returns an AssigneeRepo over table.
func NewAssigneeRepo(db API, table string) *AssigneeRepo {
	return &AssigneeRepo{Repo{DB: db, Table: table}}
}

// ListActive returns assignees with active=true.
func (r *AssigneeRepo) ListActive(ctx context.Context) ([]models.Assignee, error) {
	items, err := queryAll(ctx, r.DB, &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: awsStr("PK = :pk"),
		FilterExpression:       awsStr("#active = :true"),
		ExpressionAttributeNames: map[string]string{
			"#active": "active",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: assigneePK},
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	out := make([]models.Assignee, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("decode assignees: %w", err)
	}
	return out, nil
}

// Add creates an active assignee.
func (r *AssigneeRepo) Add(ctx context.Context, name, email string) (models.Assignee, error) {
	a := models.Assignee{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(name),
		Email:  strings.TrimSpace(email),
		Active: true,
	}
	a.PK, a.SK = AssigneeKeys(a.ID)
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return models.Assignee{}, err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return models.Assignee{}, fmt.Errorf("put assignee: %w", err)
	}
	return a, nil
}
