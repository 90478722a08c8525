package dynamo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      withSortableCreatedAt(item, n.CreatedAt),
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient queries the user_id-created_at GSI newest first, optionally filtered by type.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, userID string, f domain.NotificationFilter) ([]domain.Notification, string, error) {
	startKey, err := decodeCursor(f.Cursor)
	if err != nil {
		return nil, "", err
	}
	fb := newFilterBuilder()
	keyCond := fb.eq("user_id", strValue(userID))
	if f.Type != nil {
		fb.add(fb.eq("type", numValue(int(*f.Type))))
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserCreated),
		KeyConditionExpression:    aws.String(keyCond),
		FilterExpression:          fb.filter(),
		ExpressionAttributeNames:  fb.names,
		ExpressionAttributeValues: fb.values,
		ExclusiveStartKey:         startKey,
		ScanIndexForward:          aws.Bool(false),
		Limit:                     limitOrNil(f.Limit),
	})
	if err != nil {
		return nil, "", err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, "", err
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return notifications, next, nil
}

// unreadIDs walks every unread notification id of one recipient.
func (r *NotificationRepo) unreadIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(indexUserCreated),
			KeyConditionExpression: aws.String("user_id = :uid"),
			FilterExpression:       aws.String("is_read = :f"),
			ProjectionExpression:   aws.String("notification_id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": strValue(userID),
				":f":   &types.AttributeValueMemberBOOL{Value: false},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if v, ok := item["notification_id"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, v.Value)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	ids, err := r.unreadIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldIsRead: true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	ids, err := r.unreadIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	marked := 0
	var firstErr error
	for _, id := range ids {
		if err := r.MarkAsRead(ctx, id); err != nil {
			slog.Warn("failed to mark notification read", "notification_id", id, "user_id", userID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		marked++
	}
	return marked, firstErr
}

func (r *NotificationRepo) Delete(ctx context.Context, notificationID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	return err
}
