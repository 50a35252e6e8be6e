package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// ClaimRepo is the claim store.
type ClaimRepo struct{ Repo }

// NewClaimRepo returns a ClaimRepo over table.
func NewClaimRepo(db API, table string) *ClaimRepo {
	return &ClaimRepo{Repo{DB: db, Table: table}}
}

// Insert writes a new claim, failing with lifecycle.ErrConflict if the id is taken.
func (r *ClaimRepo) Insert(ctx context.Context, c models.Claim) error {
	c.PK, c.SK = ClaimKeys(c.ID)
	c.GSI1PK, c.GSI1SK = claimsGSI1PK, submittedSortKey(c.SubmittedAt, c.ID)
	if c.Documents == nil {
		c.Documents = []models.Document{}
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("put claim %s: %w", c.ID, conditionFailed(err, lifecycle.ErrConflict))
	}
	return nil
}

// Get reads one claim with a strongly consistent read.
func (r *ClaimRepo) Get(ctx context.Context, id string) (models.Claim, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.Table,
		Key:            keyOf(ClaimKeys(id)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.Claim{}, fmt.Errorf("get claim %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return models.Claim{}, fmt.Errorf("claim %s: %w", id, lifecycle.ErrNotFound)
	}
	var c models.Claim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return models.Claim{}, fmt.Errorf("decode claim %s: %w", id, err)
	}
	return c, nil
}

// List returns every claim, newest submission first.
func (r *ClaimRepo) List(ctx context.Context) ([]models.Claim, error) {
	items, err := queryAll(ctx, r.DB, &dynamodb.QueryInput{
		TableName:              &r.Table,
		IndexName:              awsStr(GSI1),
		KeyConditionExpression: awsStr("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: claimsGSI1PK},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	claims := make([]models.Claim, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}

// Update applies p in one conditional UpdateItem. resolvedAt uses
// if_not_exists so the first resolution time is never overwritten.
func (r *ClaimRepo) Update(ctx context.Context, id string, p lifecycle.ClaimPatch) (models.Claim, error) {
	var sets, removes []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	if p.Status != nil {
		sets = append(sets, "#status = :status")
		names["#status"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(*p.Status)}
	}
	if p.Resolution != nil {
		sets = append(sets, "#resolution = :resolution")
		names["#resolution"] = "resolution"
		values[":resolution"] = &types.AttributeValueMemberS{Value: string(*p.Resolution)}
	}
	if p.AssignedTo != nil {
		names["#assignedTo"] = "assignedTo"
		if *p.AssignedTo == "" {
			removes = append(removes, "#assignedTo")
		} else {
			sets = append(sets, "#assignedTo = :assignedTo")
			values[":assignedTo"] = &types.AttributeValueMemberS{Value: *p.AssignedTo}
		}
	}
	if p.ResolvedAtIfUnset != nil {
		av, err := attributevalue.Marshal(p.ResolvedAtIfUnset.UTC())
		if err != nil {
			return models.Claim{}, err
		}
		sets = append(sets, "#resolvedAt = if_not_exists(#resolvedAt, :resolvedAt)")
		names["#resolvedAt"] = "resolvedAt"
		values[":resolvedAt"] = av
	}

	if len(sets) == 0 && len(removes) == 0 {
		return r.Get(ctx, id)
	}

	in := &dynamodb.UpdateItemInput{
		TableName:                &r.Table,
		Key:                      keyOf(ClaimKeys(id)),
		UpdateExpression:         awsStr(updateExpression(sets, removes)),
		ConditionExpression:      awsStr("attribute_exists(PK)"),
		ExpressionAttributeNames: names,
		ReturnValues:             types.ReturnValueAllNew,
	}
	if len(values) > 0 {
		in.ExpressionAttributeValues = values
	}
	return r.update(ctx, id, in)
}

// AppendDocuments appends docs with list_append so concurrent appends
// never overwrite each other, and bumps the claim version.
func (r *ClaimRepo) AppendDocuments(ctx context.Context, id string, docs []models.Document) (models.Claim, error) {
	list, err := attributevalue.Marshal(docs)
	if err != nil {
		return models.Claim{}, err
	}
	return r.update(ctx, id, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key:       keyOf(ClaimKeys(id)),
		UpdateExpression: awsStr("SET #documents = list_append(if_not_exists(#documents, :empty), :docs), " +
			"#version = if_not_exists(#version, :zero) + :one"),
		ConditionExpression: awsStr("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#documents": "documents",
			"#version":   "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":docs":  list,
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":one":   &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
}

func (r *ClaimRepo) update(ctx context.Context, id string, in *dynamodb.UpdateItemInput) (models.Claim, error) {
	out, err := r.DB.UpdateItem(ctx, in)
	if err != nil {
		return models.Claim{}, fmt.Errorf("update claim %s: %w", id, conditionFailed(err, lifecycle.ErrNotFound))
	}
	var c models.Claim
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return models.Claim{}, fmt.Errorf("decode claim %s: %w", id, err)
	}
	return c, nil
}

func updateExpression(sets, removes []string) string {
	var parts []string
	if len(sets) > 0 {
		parts = append(parts, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removes, ", "))
	}
	return strings.Join(parts, " ")
}
