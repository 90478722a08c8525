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

// maxTransactItems is the DynamoDB cap on actions per TransactWriteItems call.
const maxTransactItems = 100

// ClaimRepo provides typed DynamoDB operations for the claim_applications table.
type ClaimRepo struct {
	client    *dynamodb.Client
	tableName string
	items     *ItemRepo
}

func NewClaimRepo(client *dynamodb.Client, tableName string, items *ItemRepo) *ClaimRepo {
	return &ClaimRepo{client: client, tableName: tableName, items: items}
}

// Put stores a new claim and bumps the posting's open-claim counter in one
// transaction. The posting must still be Pending; otherwise the claim is not
// stored and domain.ErrInvalidState is returned.
func (r *ClaimRepo) Put(ctx context.Context, c *domain.ClaimApplication) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                withSortableCreatedAt(item, c.CreatedAt),
				ConditionExpression: aws.String("attribute_not_exists(claim_id)"),
			}},
			r.items.openClaimsDelta(c.ItemType, c.ItemID, 1),
		},
	})
	switch {
	case cancelledAt(err, 1):
		return fmt.Errorf("%s item %s is no longer open for claims: %w", c.ItemType, c.ItemID, domain.ErrInvalidState)
	case isConditionFailed(err):
		return fmt.Errorf("claim %s was not stored: %w", c.ClaimID, domain.ErrConflict)
	}
	return err
}

func (r *ClaimRepo) Get(ctx context.Context, claimID string) (*domain.ClaimApplication, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("claim_id", claimID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("claim not found: %w", domain.ErrNotFound)
	}
	var c domain.ClaimApplication
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByItem returns every claim on one posting, optionally narrowed to a status.
func (r *ClaimRepo) ListByItem(ctx context.Context, t domain.ItemType, itemID string, status *domain.ClaimStatus) ([]domain.ClaimApplication, error) {
	fb := newFilterBuilder()
	keyCond := fb.eq("item_id", strValue(itemID))
	fb.add(fb.eq("item_type", numValue(int(t))))
	if status != nil {
		fb.add(fb.eq(fieldStatus, numValue(int(*status))))
	}
	var all []domain.ClaimApplication
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(indexItemCreated),
			KeyConditionExpression:    aws.String(keyCond),
			FilterExpression:          fb.filter(),
			ExpressionAttributeNames:  fb.names,
			ExpressionAttributeValues: fb.values,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.ClaimApplication
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return all, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// ListByApplicant pages through the claims one user submitted, newest first.
func (r *ClaimRepo) ListByApplicant(ctx context.Context, applicantID string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	return r.queryIndex(ctx, indexApplicantCreated, "applicant_user_id", applicantID, status, limit, cursor)
}

// ListByPublisher pages through claims made against one user's postings.
func (r *ClaimRepo) ListByPublisher(ctx context.Context, publisherID string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	return r.queryIndex(ctx, indexPublisherCreated, "publisher_user_id", publisherID, status, limit, cursor)
}

// List serves the admin listing: by status index when a status is given, otherwise a filtered scan.
func (r *ClaimRepo) List(ctx context.Context, f domain.ClaimFilter) ([]domain.ClaimApplication, string, error) {
	startKey, err := decodeCursor(f.Cursor)
	if err != nil {
		return nil, "", err
	}
	fb := newFilterBuilder()
	if f.ItemID != "" {
		fb.add(fb.eq("item_id", strValue(f.ItemID)))
	}
	if f.ItemType != nil {
		fb.add(fb.eq("item_type", numValue(int(*f.ItemType))))
	}
	if f.ApplicantID != "" {
		fb.add(fb.eq("applicant_user_id", strValue(f.ApplicantID)))
	}
	var rows []map[string]types.AttributeValue
	var last map[string]types.AttributeValue
	if f.Status != nil {
		keyCond := fb.eq(fieldStatus, numValue(int(*f.Status)))
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(indexStatusCreated),
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
		rows, last = out.Items, out.LastEvaluatedKey
	} else {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          fb.filter(),
			ExpressionAttributeNames:  fb.namesOrNil(),
			ExpressionAttributeValues: fb.valuesOrNil(),
			ExclusiveStartKey:         startKey,
			Limit:                     limitOrNil(f.Limit),
		})
		if err != nil {
			return nil, "", err
		}
		rows, last = out.Items, out.LastEvaluatedKey
	}
	var claims []domain.ClaimApplication
	if err := attributevalue.UnmarshalListOfMaps(rows, &claims); err != nil {
		return nil, "", err
	}
	next, err := encodeCursor(last)
	if err != nil {
		return nil, "", err
	}
	return claims, next, nil
}

func (r *ClaimRepo) queryIndex(ctx context.Context, index, attr, value string, status *domain.ClaimStatus, limit int32, cursor string) ([]domain.ClaimApplication, string, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	fb := newFilterBuilder()
	keyCond := fb.eq(attr, strValue(value))
	if status != nil {
		fb.add(fb.eq(fieldStatus, numValue(int(*status))))
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String(keyCond),
		FilterExpression:          fb.filter(),
		ExpressionAttributeNames:  fb.names,
		ExpressionAttributeValues: fb.values,
		ExclusiveStartKey:         startKey,
		ScanIndexForward:          aws.Bool(false),
		Limit:                     limitOrNil(limit),
	})
	if err != nil {
		return nil, "", err
	}
	var claims []domain.ClaimApplication
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &claims); err != nil {
		return nil, "", err
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return claims, next, nil
}

// Resolve moves a PendingReview claim to a terminal status and releases its
// slot in the posting's open-claim counter. It fails with domain.ErrConflict
// when the claim already left PendingReview.
func (r *ClaimRepo) Resolve(ctx context.Context, c *domain.ClaimApplication, to domain.ClaimStatus, auditorID, remark string, at time.Time) error {
	upd, err := r.resolveUpdate(c.ClaimID, to, auditorID, remark, at)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: upd},
			r.items.openClaimsDelta(c.ItemType, c.ItemID, -1),
		},
	})
	switch {
	case cancelledAt(err, 0):
		return fmt.Errorf("claim %s is no longer pending review: %w", c.ClaimID, domain.ErrConflict)
	case cancelledAt(err, 1):
		// The posting is gone or its counter is already drained.
		return r.resolveClaim(ctx, upd)
	case isConditionFailed(err):
		return fmt.Errorf("claim %s changed while resolving: %w", c.ClaimID, domain.ErrConflict)
	}
	return err
}

// resolveClaim applies a resolve update to the claim alone.
func (r *ClaimRepo) resolveClaim(ctx context.Context, upd *types.Update) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 upd.TableName,
		Key:                       upd.Key,
		UpdateExpression:          upd.UpdateExpression,
		ConditionExpression:       upd.ConditionExpression,
		ExpressionAttributeNames:  upd.ExpressionAttributeNames,
		ExpressionAttributeValues: upd.ExpressionAttributeValues,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("claim is no longer pending review: %w", domain.ErrConflict)
	}
	return err
}

func (r *ClaimRepo) resolveUpdate(claimID string, to domain.ClaimStatus, auditorID, remark string, at time.Time) (*types.Update, error) {
	updates := map[string]interface{}{
		fieldStatus:      to,
		fieldAuditRemark: remark,
		fieldUpdatedAt:   at,
	}
	if auditorID != "" {
		updates[fieldAuditorUserID] = auditorID
		updates[fieldAuditedAt] = at
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	return &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("claim_id", claimID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       ue.withCondition(fieldStatus, numValue(int(domain.ClaimPendingReview))),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}, nil
}

// Approve commits, in one transaction, the winning claim, the posting flip
// Pending -> Claimed and the rejection of rival pending claims. Every member is
// conditioned on its expected prior status and the flip on the open-claim
// counter, so of several concurrent approvals on the same posting exactly one
// commits, and a claim filed after the rivals were listed makes it fail with
// domain.ErrConflict instead of being left behind.
// Rivals that do not fit in the transaction are rejected right after it; the
// posting is already Claimed by then so none of them can be approved.
func (r *ClaimRepo) Approve(ctx context.Context, in domain.ClaimApproval) error {
	actions, overflow, err := r.approvalActions(in)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: actions})
	if isConditionFailed(err) {
		return fmt.Errorf("posting %s changed while approving claim %s: %w", in.Claim.ItemID, in.Claim.ClaimID, domain.ErrConflict)
	}
	if err != nil {
		return err
	}

	for _, id := range overflow {
		upd, err := r.resolveUpdate(id, domain.ClaimRejected, in.AuditorID, domain.RemarkSuperseded, in.At)
		if err == nil {
			err = r.resolveClaim(ctx, upd)
		}
		if err != nil {
			slog.Warn("could not reject rival claim", "claim_id", id, "item_id", in.Claim.ItemID, "err", err)
		}
	}
	return nil
}

// approvalActions builds the approval transaction: winner, posting flip, then
// as many rival rejections as fit. The rivals left over are returned apart.
func (r *ClaimRepo) approvalActions(in domain.ClaimApproval) ([]types.TransactWriteItem, []string, error) {
	winner, err := r.resolveUpdate(in.Claim.ClaimID, domain.ClaimApproved, in.AuditorID, in.Remark, in.At)
	if err != nil {
		return nil, nil, err
	}
	flip, err := r.items.claimFlip(in.Claim.ItemType, in.Claim.ItemID, in.OpenClaims, in.At)
	if err != nil {
		return nil, nil, err
	}
	actions := []types.TransactWriteItem{{Update: winner}, flip}

	inTxn := in.RivalIDs
	var overflow []string
	if room := maxTransactItems - len(actions); len(inTxn) > room {
		inTxn, overflow = in.RivalIDs[:room], in.RivalIDs[room:]
	}
	for _, id := range inTxn {
		upd, err := r.resolveUpdate(id, domain.ClaimRejected, in.AuditorID, domain.RemarkSuperseded, in.At)
		if err != nil {
			return nil, nil, err
		}
		actions = append(actions, types.TransactWriteItem{Update: upd})
	}
	return actions, overflow, nil
}
