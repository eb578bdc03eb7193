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
	"github.com/go-confirm-api/internal/domain"
)

// AccountWriter performs the guarded credential mutations. Each method
// bundles the user write, the contact uniqueness-guard items and the
// consumed confirmation's delete into a single TransactWriteItems call, so a
// crash or a concurrent request can never observe a mutated user without a
// deleted confirmation, or the other way round.
//
// Uniqueness guards are extra items in the users table keyed
// "email#<addr>" / "phone#<e164>" with the owning user_id; writing one with
// attribute_not_exists makes contact uniqueness a storage-level guarantee
// rather than a read-then-write hope.
type AccountWriter struct {
	client        *dynamodb.Client
	usersTable    string
	confirmTables map[domain.ConfirmVariant]string
}

func NewAccountWriter(client *dynamodb.Client, usersTable, emailConfirmations, phoneConfirmations string) *AccountWriter {
	return &AccountWriter{
		client:     client,
		usersTable: usersTable,
		confirmTables: map[domain.ConfirmVariant]string{
			domain.VariantEmail: emailConfirmations,
			domain.VariantPhone: phoneConfirmations,
		},
	}
}

func guardID(field, value string) string {
	return field + "#" + value
}

func (w *AccountWriter) putGuard(field, value, ownerID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(w.usersTable),
			Item: map[string]types.AttributeValue{
				fieldUserID:  &types.AttributeValueMemberS{Value: guardID(field, value)},
				fieldOwnerID: &types.AttributeValueMemberS{Value: ownerID},
			},
			ConditionExpression: aws.String("attribute_not_exists(user_id)"),
		},
	}
}

func (w *AccountWriter) deleteGuard(field, value string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(w.usersTable),
			Key:       strKey(fieldUserID, guardID(field, value)),
		},
	}
}

func (w *AccountWriter) deleteConfirmation(variant domain.ConfirmVariant, contact string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(w.confirmTables[variant]),
			Key:       strKey(fieldContact, contact),
		},
	}
}

// CreateUser inserts the user together with the uniqueness guard for its
// contact value and deletes the consumed registration confirmation. A guard
// collision (the contact was claimed after the confirmation was issued) maps
// to ErrUserAlreadyExists.
func (w *AccountWriter) CreateUser(ctx context.Context, u *domain.User, variant domain.ConfirmVariant, contact string) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	items := []types.TransactWriteItem{
		w.putGuard(variant.ContactField(), contact, u.UserID),
		{
			Put: &types.Put{
				TableName:           aws.String(w.usersTable),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			},
		},
		w.deleteConfirmation(variant, contact),
	}
	_, err = w.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if txConditionFailed(err) {
			return fmt.Errorf("contact already claimed: %w", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("create user transaction: %w", err)
	}
	return nil
}

// UpdatePasswordHash overwrites the user's password hash and deletes the
// consumed reset confirmation atomically.
func (w *AccountWriter) UpdatePasswordHash(ctx context.Context, userID, hash string, variant domain.ConfirmVariant, contact string) error {
	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:           aws.String(w.usersTable),
				Key:                 strKey(fieldUserID, userID),
				UpdateExpression:    aws.String("SET #p = :p, #u = :u"),
				ConditionExpression: aws.String("attribute_exists(user_id)"),
				ExpressionAttributeNames: map[string]string{
					"#p": fieldPasswordHash,
					"#u": fieldUpdatedAt,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":p": &types.AttributeValueMemberS{Value: hash},
					":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
				},
			},
		},
		w.deleteConfirmation(variant, contact),
	}
	_, err := w.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if txConditionFailed(err) {
			return fmt.Errorf("user row gone: %w", domain.ErrUserNotFound)
		}
		return fmt.Errorf("update password transaction: %w", err)
	}
	return nil
}

// UpdateContact repoints the user's contact field at newContact: claims the
// new uniqueness guard, releases the old one, updates the user row and
// deletes the consumed change confirmation, all in one transaction.
func (w *AccountWriter) UpdateContact(ctx context.Context, u *domain.User, variant domain.ConfirmVariant, newContact string) error {
	field := variant.ContactField()
	items := []types.TransactWriteItem{
		w.putGuard(field, newContact, u.UserID),
		{
			Update: &types.Update{
				TableName:           aws.String(w.usersTable),
				Key:                 strKey(fieldUserID, u.UserID),
				UpdateExpression:    aws.String("SET #f = :v, #u = :u"),
				ConditionExpression: aws.String("attribute_exists(user_id)"),
				ExpressionAttributeNames: map[string]string{
					"#f": field,
					"#u": fieldUpdatedAt,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":v": &types.AttributeValueMemberS{Value: newContact},
					":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
				},
			},
		},
		w.deleteConfirmation(variant, newContact),
	}
	if old := u.Contact(variant); old != nil && *old != "" {
		items = append(items, w.deleteGuard(field, *old))
	}
	_, err := w.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if txConditionFailed(err) {
			return fmt.Errorf("contact already claimed: %w", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("update contact transaction: %w", err)
	}
	return nil
}

// txConditionFailed reports whether a TransactWriteItems error was caused by
// a conditional check, as opposed to throttling or an infrastructure fault.
func txConditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
