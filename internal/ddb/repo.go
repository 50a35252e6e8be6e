// Package ddb stores claims, their activity log, and assignees in a single DynamoDB table.
//
// Layout:
//
//	PK=CLAIM#<id>  SK=META                     claim record (GSI1PK=CLAIMS, GSI1SK=<submittedAt>#<id>)
//	PK=CLAIM#<id>  SK=LOG#<timestamp>#<logId>  activity log entry
//	PK=ASSIGNEE    SK=ASSIGNEE#<id>            assignee
package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
)

// GSI1 lists claims by submission time.
const GSI1 = "GSI1"

const (
	claimPrefix    = "CLAIM#"
	claimSK        = "META"
	logPrefix      = "LOG#"
	claimsGSI1PK   = "CLAIMS"
	assigneePK     = "ASSIGNEE"
	assigneePrefix = "ASSIGNEE#"
)

// sortableTime has a fixed width so lexical order matches time order.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// API is the subset of the DynamoDB client used by the repositories.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Repo wraps a DynamoDB client and table name.
type Repo struct {
	DB    API
	Table string
}

// ClaimKeys returns the partition and sort key of a claim record.
func ClaimKeys(claimID string) (pk, sk string) {
	return claimPrefix + claimID, claimSK
}

// LogKeys returns the keys of an activity log entry. Entries of one claim
// share its partition and sort by timestamp.
func LogKeys(claimID string, ts time.Time, logID string) (pk, sk string) {
	return claimPrefix + claimID, logPrefix + ts.UTC().Format(sortableTime) + "#" + logID
}

// AssigneeKeys returns the keys of an assignee record.
func AssigneeKeys(id string) (pk, sk string) {
	return assigneePK, assigneePrefix + id
}

func submittedSortKey(t time.Time, claimID string) string {
	return t.UTC().Format(sortableTime) + "#" + claimID
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// conditionFailed maps a failed condition expression to sentinel, passing other errors through.
func conditionFailed(err, sentinel error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return aws.String(s) }

var (
	_ lifecycle.ClaimStore        = (*ClaimRepo)(nil)
	_ lifecycle.ActivityLog       = (*LogRepo)(nil)
	_ lifecycle.AssigneeDirectory = (*AssigneeRepo)(nil)
)

// queryAll follows LastEvaluatedKey until the result set is exhausted.
func queryAll(ctx context.Context, db API, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(db, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}
