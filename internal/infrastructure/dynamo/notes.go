package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/notes-api-nosql/internal/domain"
)

// NoteRepo provides typed DynamoDB operations for the notes table.
type NoteRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNoteRepo(client *dynamodb.Client, tableName string) *NoteRepo {
	return &NoteRepo{client: client, tableName: tableName}
}

func (r *NoteRepo) Put(ctx context.Context, n *domain.Note) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NoteRepo) Get(ctx context.Context, noteID string) (*domain.Note, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("note_id", noteID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("note not found: %w", domain.ErrNotFound)
	}
	var n domain.Note
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser queries the user_id-updated_at GSI newest-first and applies the
// filter as a DynamoDB filter expression. cursor is a base64-encoded
// note_id/updated_at pair used as ExclusiveStartKey; the returned next cursor
// is empty when no more pages remain.
func (r *NoteRepo) ListByUser(ctx context.Context, userID string, filter domain.NoteFilter, limit int32, cursor string) ([]domain.Note, string, error) {
	values := map[string]types.AttributeValue{
		":uid": &types.AttributeValueMemberS{Value: userID},
		":t":   &types.AttributeValueMemberBOOL{Value: true},
	}
	names := map[string]string{}
	filterParts := []string{"enable = :t"}

	if filter.CategoryID != nil {
		filterParts = append(filterParts, "category_id = :cat")
		values[":cat"] = &types.AttributeValueMemberS{Value: *filter.CategoryID}
	}
	if filter.Archived != nil {
		filterParts = append(filterParts, "archived = :arch")
		values[":arch"] = &types.AttributeValueMemberBOOL{Value: *filter.Archived}
	}
	if filter.Pinned != nil {
		filterParts = append(filterParts, "pinned = :pin")
		values[":pin"] = &types.AttributeValueMemberBOOL{Value: *filter.Pinned}
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		// Substring match on title or content. DynamoDB contains() is
		// case-sensitive; callers lowercase their input and we store a
		// lowercased search_text attribute alongside the display fields.
		filterParts = append(filterParts, "contains(search_text, :q)")
		values[":q"] = &types.AttributeValueMemberS{Value: strings.ToLower(q)}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("user_id-updated_at-index"),
		KeyConditionExpression:    aws.String("user_id = :uid"),
		FilterExpression:          aws.String(strings.Join(filterParts, " AND ")),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false), // newest first
		Limit:                     aws.Int32(limit),
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	if cursor != "" {
		startKey, err := decodeNoteCursor(cursor, userID)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var notes []domain.Note
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notes); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if out.LastEvaluatedKey != nil {
		nextCursor = encodeNoteCursor(out.LastEvaluatedKey)
	}
	return notes, nextCursor, nil
}

func (r *NoteRepo) Update(ctx context.Context, noteID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("note_id", noteID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *NoteRepo) SoftDelete(ctx context.Context, noteID string) error {
	now := time.Now().UTC()
	return r.Update(ctx, noteID, map[string]interface{}{"enable": false, "deleted_at": now.Format(time.RFC3339)})
}

// DetachCategory clears category_id on every note referencing categoryID.
// Called when a category is deleted; notes themselves are never deleted.
func (r *NoteRepo) DetachCategory(ctx context.Context, userID, categoryID string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-updated_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		FilterExpression:       aws.String("category_id = :cat"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":cat": &types.AttributeValueMemberS{Value: categoryID},
		},
	})
	if err != nil {
		return err
	}
	var notes []domain.Note
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notes); err != nil {
		return err
	}
	for _, n := range notes {
		if err := r.Update(ctx, n.NoteID, map[string]interface{}{"category_id": nil}); err != nil {
			return err
		}
	}
	return nil
}

// The cursor encodes the GSI's full ExclusiveStartKey (table key + index key).
func encodeNoteCursor(key map[string]types.AttributeValue) string {
	noteID, ok := key["note_id"].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	updatedAt, ok := key["updated_at"].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(noteID.Value + "|" + updatedAt.Value))
}

func decodeNoteCursor(cursor, userID string) (map[string]types.AttributeValue, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(b), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed cursor")
	}
	return map[string]types.AttributeValue{
		"note_id":    &types.AttributeValueMemberS{Value: parts[0]},
		"user_id":    &types.AttributeValueMemberS{Value: userID},
		"updated_at": &types.AttributeValueMemberS{Value: parts[1]},
	}, nil
}
