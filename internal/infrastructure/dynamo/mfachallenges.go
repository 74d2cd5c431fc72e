package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/notes-api-nosql/internal/domain"
)

// MFAChallengeRepo stores the short-lived login challenges issued when a
// password check succeeded but the second factor is still outstanding.
// Rows expire via DynamoDB TTL on expires_at.
type MFAChallengeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMFAChallengeRepo(client *dynamodb.Client, tableName string) *MFAChallengeRepo {
	return &MFAChallengeRepo{client: client, tableName: tableName}
}

func (r *MFAChallengeRepo) Put(ctx context.Context, c *domain.MFAChallenge) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal mfa challenge: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *MFAChallengeRepo) Get(ctx context.Context, token string) (*domain.MFAChallenge, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("mfa challenge not found: %w", domain.ErrNotFound)
	}
	var c domain.MFAChallenge
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MFAChallengeRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	return err
}
