package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/identity-platform/internal/domain"
)

// Single-table key prefixes. An identity occupies two items: the record
// itself under ID#<subject_id> and an email guard under EMAIL#<email> whose
// conditional put enforces email uniqueness across all roles.
const (
	identityKeyPrefix = "ID#"
	emailKeyPrefix    = "EMAIL#"
)

type emailGuard struct {
	PK        string `dynamodbav:"pk"`
	SubjectID string `dynamodbav:"subject_id"`
}

type identityItem struct {
	PK string `dynamodbav:"pk"`
	domain.Identity
}

// IdentityRepo is the credential store: typed DynamoDB operations for the
// identities table.
type IdentityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIdentityRepo(client *dynamodb.Client, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

// Create writes the identity and its email guard in one transaction. Both
// puts are conditional on the item not existing, so a concurrent commit for
// the same email loses the race and gets domain.ErrEmailExists.
func (r *IdentityRepo) Create(ctx context.Context, id *domain.Identity) error {
	item, err := attributevalue.MarshalMap(identityItem{
		PK:       identityKeyPrefix + id.SubjectID,
		Identity: *id,
	})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	guard, err := attributevalue.MarshalMap(emailGuard{
		PK:        emailKeyPrefix + id.Email,
		SubjectID: id.SubjectID,
	})
	if err != nil {
		return fmt.Errorf("marshal email guard: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("email %s: %w", id.Email, domain.ErrEmailExists)
				}
			}
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (r *IdentityRepo) Get(ctx context.Context, subjectID string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("pk", identityKeyPrefix+subjectID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity %s: %w", subjectID, domain.ErrNotFound)
	}
	var it identityItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return &it.Identity, nil
}

func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("pk", emailKeyPrefix+email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity for email: %w", domain.ErrNotFound)
	}
	var g emailGuard
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, err
	}
	return r.Get(ctx, g.SubjectID)
}

// Delete removes the identity and its email guard. Deleting an unknown
// subject is not an error; compensation must be able to retry safely.
func (r *IdentityRepo) Delete(ctx context.Context, subjectID string) error {
	id, err := r.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("pk", identityKeyPrefix+subjectID),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("pk", emailKeyPrefix+id.Email),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

func (r *IdentityRepo) UpdatePasswordHash(ctx context.Context, subjectID, newHash string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"password_hash": newHash,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("pk", identityKeyPrefix+subjectID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(pk)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("identity %s: %w", subjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}
