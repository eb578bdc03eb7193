package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-confirm-api/internal/domain"
)

// secretCodeIndex is the GSI used to look a record up by its client-held handle.
const secretCodeIndex = "secret_code-index"

// ConfirmationRepo persists confirmation records for one contact variant
// (email or phone). PK: contact — the table itself enforces at most one
// record per contact. Conditional writes carry the race guarantees: a record
// can be confirmed at most once, and concurrent resends cannot both bump
// send_count from the same stale read.
type ConfirmationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewConfirmationRepo(client *dynamodb.Client, tableName string) *ConfirmationRepo {
	return &ConfirmationRepo{client: client, tableName: tableName}
}

// GetByContact returns the record for a contact, or (nil, nil) when absent.
func (r *ConfirmationRepo) GetByContact(ctx context.Context, contact string) (*domain.Confirmation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldContact, contact),
	})
	if err != nil {
		return nil, fmt.Errorf("get confirmation: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var c domain.Confirmation
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation: %w", err)
	}
	return &c, nil
}

// GetBySecret returns the record referenced by a secret handle, or (nil, nil)
// when no record carries it.
func (r *ConfirmationRepo) GetBySecret(ctx context.Context, secretCode string) (*domain.Confirmation, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(secretCodeIndex),
		KeyConditionExpression:    aws.String("#sc = :sc"),
		ExpressionAttributeNames:  map[string]string{"#sc": fieldSecretCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{":sc": &types.AttributeValueMemberS{Value: secretCode}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query confirmation by secret: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var c domain.Confirmation
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation: %w", err)
	}
	return &c, nil
}

// Put upserts the record keyed by contact, overwriting any previous
// generation in place.
func (r *ConfirmationRepo) Put(ctx context.Context, c *domain.Confirmation) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ReplaceIfCurrent overwrites the record only if it still carries
// prevSecretCode, i.e. no concurrent resend regenerated it since our read.
// Returns false when the condition fails.
func (r *ConfirmationRepo) ReplaceIfCurrent(ctx context.Context, c *domain.Confirmation, prevSecretCode string) (bool, error) {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return false, fmt.Errorf("marshal confirmation: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       aws.String("#sc = :prev"),
		ExpressionAttributeNames:  map[string]string{"#sc": fieldSecretCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{":prev": &types.AttributeValueMemberS{Value: prevSecretCode}},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("replace confirmation: %w", err)
	}
	return true, nil
}

// MarkConfirmed flips confirmed to true, predicated on the record still
// holding the exact (secret_code, confirm_code) pair unconfirmed. Exactly one
// of two racing confirm calls can succeed; the loser gets false.
func (r *ConfirmationRepo) MarkConfirmed(ctx context.Context, contact, secretCode, confirmCode string) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldContact, contact),
		UpdateExpression: aws.String("SET #c = :t"),
		ConditionExpression: aws.String(
			"#sc = :sc AND #cc = :cc AND #c = :f",
		),
		ExpressionAttributeNames: map[string]string{
			"#c":  fieldConfirmed,
			"#sc": fieldSecretCode,
			"#cc": fieldConfirmCode,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":f":  &types.AttributeValueMemberBOOL{Value: false},
			":sc": &types.AttributeValueMemberS{Value: secretCode},
			":cc": &types.AttributeValueMemberS{Value: confirmCode},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("mark confirmation confirmed: %w", err)
	}
	return true, nil
}

// Delete removes the record for a contact. Consumption deletes normally run
// inside the account writer's transaction; this covers the conflict paths
// where the record is discarded without a user mutation.
func (r *ConfirmationRepo) Delete(ctx context.Context, contact string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldContact, contact),
	})
	return err
}
