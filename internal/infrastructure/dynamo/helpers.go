package dynamo

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// Cancellation reason codes reported by TransactWriteItems.
const (
	reasonConditionFailed = "ConditionalCheckFailed"
	reasonTxnConflict     = "TransactionConflict"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

func numValue(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", n)}
}

func strValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

// sortableLayout keeps every fraction digit so timestamps used as GSI sort
// keys compare correctly as strings. time.RFC3339Nano drops trailing zeros.
const sortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

func sortableTime(t time.Time) string { return t.UTC().Format(sortableLayout) }

// withSortableCreatedAt rewrites created_at in a marshalled item to the fixed-width layout.
// The RFC3339 decoder reads it back unchanged.
func withSortableCreatedAt(item map[string]types.AttributeValue, createdAt time.Time) map[string]types.AttributeValue {
	item[fieldCreatedAt] = strValue(sortableTime(createdAt))
	return item
}

// updateExpr is a rendered SET expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Keys are emitted in sorted order so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += fmt.Sprintf("%s = %s", nameKey, valueKey)
	}
	return ue, nil
}

// withCondition appends "#cond = :cond" guarding attr == value to an update expression.
func (ue *updateExpr) withCondition(attr string, value types.AttributeValue) *string {
	ue.Names["#cond"] = attr
	ue.Values[":cond"] = value
	cond := "#cond = :cond"
	return &cond
}

// isConditionFailed reports whether err is a failed ConditionExpression or a
// transaction cancelled by a failed condition or a conflicting transaction.
// Cancellations for any other reason (validation, throttling) are not.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, r := range tce.CancellationReasons {
		switch aws.ToString(r.Code) {
		case reasonConditionFailed, reasonTxnConflict:
			return true
		}
	}
	return false
}

// cancelledAt reports whether member i of a cancelled transaction failed its condition.
func cancelledAt(err error, i int) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || i >= len(tce.CancellationReasons) {
		return false
	}
	return aws.ToString(tce.CancellationReasons[i].Code) == reasonConditionFailed
}

// encodeCursor serialises a LastEvaluatedKey into an opaque page token.
func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var plain map[string]interface{}
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", err
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
	}
	var plain map[string]interface{}
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
	}
	return key, nil
}
