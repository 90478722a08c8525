package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// ItemRepo provides typed DynamoDB operations for the lost and found posting tables.
// Each item type lives in its own table so ids never collide across variants.
type ItemRepo struct {
	client *dynamodb.Client
	tables map[domain.ItemType]string
}

func NewItemRepo(client *dynamodb.Client, lostTable, foundTable string) *ItemRepo {
	return &ItemRepo{
		client: client,
		tables: map[domain.ItemType]string{
			domain.ItemTypeLost:  lostTable,
			domain.ItemTypeFound: foundTable,
		},
	}
}

func (r *ItemRepo) table(t domain.ItemType) string { return r.tables[t] }

func (r *ItemRepo) Put(ctx context.Context, p *domain.Posting) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal posting: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table(p.ItemType)),
		Item:                withSortableCreatedAt(item, p.CreatedAt),
		ConditionExpression: aws.String("attribute_not_exists(item_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("posting %s already exists: %w", p.ItemID, domain.ErrConflict)
	}
	return err
}

func (r *ItemRepo) Get(ctx context.Context, t domain.ItemType, itemID string) (*domain.Posting, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table(t)),
		Key:            strKey("item_id", itemID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s item not found: %w", t, domain.ErrNotFound)
	}
	var p domain.Posting
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial update, guarded by the status the caller last observed.
// A concurrent status change surfaces as domain.ErrConflict.
func (r *ItemRepo) Update(ctx context.Context, t domain.ItemType, itemID string, expected domain.ItemStatus, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table(t)),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       ue.withCondition(fieldStatus, numValue(int(expected))),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%s item %s is no longer %s: %w", t, itemID, expected, domain.ErrConflict)
	}
	return err
}

// CompareAndSwapStatus sets status=to only if the stored status is still from.
func (r *ItemRepo) CompareAndSwapStatus(ctx context.Context, t domain.ItemType, itemID string, from, to domain.ItemStatus) error {
	return r.Update(ctx, t, itemID, from, map[string]interface{}{fieldStatus: to})
}

// claimFlip renders the Pending -> Claimed move of an approval as a
// transaction member. It also requires the open-claim counter to still equal
// expectedOpen, so a claim filed after the rivals were read cancels the
// transaction. The counter drops to zero since every open claim is resolved.
func (r *ItemRepo) claimFlip(t domain.ItemType, itemID string, expectedOpen int, now time.Time) (types.TransactWriteItem, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:     domain.StatusClaimed,
		fieldUpdatedAt:  now,
		fieldOpenClaims: 0,
	})
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	cond := *ue.withCondition(fieldStatus, numValue(int(domain.StatusPending))) + " AND #open = :open"
	ue.Names["#open"] = fieldOpenClaims
	ue.Values[":open"] = numValue(expectedOpen)
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.table(t)),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}}, nil
}

// openClaimsDelta adds delta to a posting's open-claim counter as a
// transaction member. A positive delta also requires the posting to be
// Pending; a negative one requires the counter to be above zero.
func (r *ItemRepo) openClaimsDelta(t domain.ItemType, itemID string, delta int) types.TransactWriteItem {
	names := map[string]string{"#id": "item_id", "#open": fieldOpenClaims}
	values := map[string]types.AttributeValue{":d": numValue(delta)}
	cond := "attribute_exists(#id)"
	if delta > 0 {
		names["#s"] = fieldStatus
		values[":s"] = numValue(int(domain.StatusPending))
		cond += " AND #s = :s"
	} else {
		values[":zero"] = numValue(0)
		cond += " AND #open > :zero"
	}
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.table(t)),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String("ADD #open :d"),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}}
}

// Delete removes a posting that has no claim pending review. A missing
// posting is domain.ErrNotFound; one with open claims is domain.ErrConflict.
func (r *ItemRepo) Delete(ctx context.Context, t domain.ItemType, itemID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                           aws.String(r.table(t)),
		Key:                                 strKey("item_id", itemID),
		ConditionExpression:                 aws.String("attribute_exists(#id) AND (attribute_not_exists(#open) OR #open = :zero)"),
		ExpressionAttributeNames:            map[string]string{"#id": "item_id", "#open": fieldOpenClaims},
		ExpressionAttributeValues:           map[string]types.AttributeValue{":zero": numValue(0)},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return fmt.Errorf("%s item not found: %w", t, domain.ErrNotFound)
		}
		return fmt.Errorf("%s item %s still has claims pending review: %w", t, itemID, domain.ErrConflict)
	}
	return err
}

// List returns one page of postings matching the filter, newest first when an index is used.
// Owner and status filters use their GSIs; everything else is a filter expression.
func (r *ItemRepo) List(ctx context.Context, f domain.ItemFilter) ([]domain.Posting, string, error) {
	startKey, err := decodeCursor(f.Cursor)
	if err != nil {
		return nil, "", err
	}
	fb := newFilterBuilder()
	var keyCond, index string
	switch {
	case f.PublisherID != "":
		index = indexPublisherCreated
		keyCond = fb.eq("publisher_user_id", strValue(f.PublisherID))
		if f.Status != nil {
			fb.add(fb.eq(fieldStatus, numValue(int(*f.Status))))
		}
	case f.Status != nil:
		index = indexStatusCreated
		keyCond = fb.eq(fieldStatus, numValue(int(*f.Status)))
	}
	if f.Title != "" {
		fb.add(fmt.Sprintf("contains(%s, %s)", fb.name("title"), fb.value(strValue(f.Title))))
	}
	if f.CategoryID != "" {
		fb.add(fb.eq("category_id", strValue(f.CategoryID)))
	}

	var items []map[string]types.AttributeValue
	var last map[string]types.AttributeValue
	if index != "" {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table(f.ItemType)),
			IndexName:                 aws.String(index),
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
		items, last = out.Items, out.LastEvaluatedKey
	} else {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.table(f.ItemType)),
			FilterExpression:          fb.filter(),
			ExpressionAttributeNames:  fb.namesOrNil(),
			ExpressionAttributeValues: fb.valuesOrNil(),
			ExclusiveStartKey:         startKey,
			Limit:                     limitOrNil(f.Limit),
		})
		if err != nil {
			return nil, "", err
		}
		items, last = out.Items, out.LastEvaluatedKey
	}

	var postings []domain.Posting
	if err := attributevalue.UnmarshalListOfMaps(items, &postings); err != nil {
		return nil, "", err
	}
	next, err := encodeCursor(last)
	if err != nil {
		return nil, "", err
	}
	return postings, next, nil
}

// ListPendingCreatedBefore walks the status index for Pending postings older than cutoff.
func (r *ItemRepo) ListPendingCreatedBefore(ctx context.Context, t domain.ItemType, cutoff time.Time) ([]domain.Posting, error) {
	var all []domain.Posting
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table(t)),
			IndexName:              aws.String(indexStatusCreated),
			KeyConditionExpression: aws.String("#s = :s AND #c < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#s": fieldStatus,
				"#c": fieldCreatedAt,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":s":      numValue(int(domain.StatusPending)),
				":cutoff": strValue(sortableTime(cutoff)),
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Posting
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

// CountByStatus counts postings of one type in one status.
func (r *ItemRepo) CountByStatus(ctx context.Context, t domain.ItemType, s domain.ItemStatus) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table(t)),
			IndexName:                 aws.String(indexStatusCreated),
			KeyConditionExpression:    aws.String("#s = :s"),
			ExpressionAttributeNames:  map[string]string{"#s": fieldStatus},
			ExpressionAttributeValues: map[string]types.AttributeValue{":s": numValue(int(s))},
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// filterBuilder accumulates placeholder names and values for key and filter expressions.
type filterBuilder struct {
	names   map[string]string
	values  map[string]types.AttributeValue
	clauses []string
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{names: map[string]string{}, values: map[string]types.AttributeValue{}}
}

func (b *filterBuilder) name(attr string) string {
	key := "#" + strings.ReplaceAll(attr, "_", "")
	b.names[key] = attr
	return key
}

func (b *filterBuilder) value(v types.AttributeValue) string {
	key := fmt.Sprintf(":p%d", len(b.values))
	b.values[key] = v
	return key
}

func (b *filterBuilder) eq(attr string, v types.AttributeValue) string {
	return fmt.Sprintf("%s = %s", b.name(attr), b.value(v))
}

func (b *filterBuilder) add(clause string) { b.clauses = append(b.clauses, clause) }

func (b *filterBuilder) filter() *string {
	if len(b.clauses) == 0 {
		return nil
	}
	return aws.String(strings.Join(b.clauses, " AND "))
}

func (b *filterBuilder) namesOrNil() map[string]string {
	if len(b.names) == 0 {
		return nil
	}
	return b.names
}

func (b *filterBuilder) valuesOrNil() map[string]types.AttributeValue {
	if len(b.values) == 0 {
		return nil
	}
	return b.values
}

func limitOrNil(n int32) *int32 {
	if n <= 0 {
		return nil
	}
	return aws.Int32(n)
}
