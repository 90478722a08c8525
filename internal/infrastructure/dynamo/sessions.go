package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// SessionRepo stores login sessions. A session is never deleted; logout,
// account changes and refresh-token reuse revoke it in place.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("session %s already exists: %w", s.SessionID, domain.ErrConflict)
	}
	return err
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("session_id", sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByRefreshToken finds the live session holding token. Revoked sessions
// are reported as domain.ErrUnauthenticated.
func (r *SessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexRefreshToken),
		KeyConditionExpression:    aws.String("#rt = :rt"),
		ExpressionAttributeNames:  map[string]string{"#rt": fieldRefreshToken},
		ExpressionAttributeValues: map[string]types.AttributeValue{":rt": strValue(token)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, err
	}
	if !s.Enable {
		return nil, fmt.Errorf("session revoked (%s): %w", s.RevokedReason, domain.ErrUnauthenticated)
	}
	return &s, nil
}

// Rotate swaps the refresh token of a live session. It only succeeds while
// the session still holds oldToken, so two refreshes racing on the same token
// cannot both win; the loser gets domain.ErrUnauthenticated.
func (r *SessionRepo) Rotate(ctx context.Context, sessionID, oldToken, newToken string, newExpiry int64) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldRefreshToken:     newToken,
		fieldRefreshExpiresAt: newExpiry,
		fieldUpdatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	cond := *ue.withCondition(fieldRefreshToken, strValue(oldToken)) + " AND #en = :en"
	ue.Names["#en"] = fieldEnable
	ue.Values[":en"] = &types.AttributeValueMemberBOOL{Value: true}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("session_id", sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("refresh token already used: %w", domain.ErrUnauthenticated)
	}
	return err
}

// Revoke disables one session and records why. Revoking a revoked session is a no-op.
func (r *SessionRepo) Revoke(ctx context.Context, sessionID, reason string) error {
	now := time.Now().UTC()
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldEnable:        false,
		fieldRevokedAt:     now,
		fieldRevokedReason: reason,
		fieldUpdatedAt:     now,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("session_id", sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       ue.withCondition(fieldEnable, &types.AttributeValueMemberBOOL{Value: true}),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}

// RevokeByUser revokes every live session of a user except keepSessionID
// (empty keeps none). Failures are logged and the first one is returned
// after the rest were attempted.
func (r *SessionRepo) RevokeByUser(ctx context.Context, userID, keepSessionID, reason string) error {
	ids, err := r.liveSessionIDs(ctx, userID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, id := range ids {
		if id == keepSessionID {
			continue
		}
		if err := r.Revoke(ctx, id, reason); err != nil {
			slog.Warn("failed to revoke session", "session_id", id, "user_id", userID, "reason", reason, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *SessionRepo) liveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(indexUserID),
			KeyConditionExpression: aws.String("#uid = :uid"),
			FilterExpression:       aws.String("#en = :en"),
			ExpressionAttributeNames: map[string]string{
				"#uid": "user_id",
				"#en":  fieldEnable,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": strValue(userID),
				":en":  &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if sid, ok := item["session_id"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, sid.Value)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
