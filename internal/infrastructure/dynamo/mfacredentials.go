package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/notes-api-nosql/internal/domain"
)

// MFACredentialRepo provides typed DynamoDB operations for the mfa_credentials
// table. All writes go through Save, which enforces optimistic concurrency on
// the credential's version attribute: two racing read-modify-write cycles on
// the same user cannot both commit, which is what keeps backup codes
// single-use under concurrent logins.
type MFACredentialRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMFACredentialRepo(client *dynamodb.Client, tableName string) *MFACredentialRepo {
	return &MFACredentialRepo{client: client, tableName: tableName}
}

// Get returns the credential for userID, or domain.ErrNotFound when the user
// has never started MFA setup.
func (r *MFACredentialRepo) Get(ctx context.Context, userID string) (*domain.MFACredential, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("mfa credential not found: %w", domain.ErrNotFound)
	}
	var c domain.MFACredential
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the credential conditionally: the stored version must still be
// the one the caller loaded (cred.Version), or the row must not exist yet when
// cred.Version is zero. On success the stored version is bumped. A failed
// condition surfaces domain.ErrConcurrentModification so the caller can
// re-read and retry instead of silently losing the other writer's update.
func (r *MFACredentialRepo) Save(ctx context.Context, cred *domain.MFACredential) error {
	loaded := cred.Version
	cred.Version = loaded + 1
	cred.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(cred)
	if err != nil {
		cred.Version = loaded
		return fmt.Errorf("marshal mfa credential: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	if loaded == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(user_id) OR version = :v")
	} else {
		input.ConditionExpression = aws.String("version = :v")
	}
	input.ExpressionAttributeValues = map[string]types.AttributeValue{
		":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(loaded, 10)},
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		cred.Version = loaded
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("mfa credential version mismatch: %w", domain.ErrConcurrentModification)
		}
		return err
	}
	return nil
}
