package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrConditionFailed = errors.New("condition check failed")
)

// TransactPut is one conditional put inside TransactPutItems. When
// MustNotExist names a key attribute the put fails if the item exists.
type TransactPut struct {
	Table        string
	Item         interface{}
	MustNotExist string
}

func AttrString(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

func StringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: AttrString(value)}
}

func (c *DynamoDBClient) PutItem(ctx context.Context, tableName string, item interface{}) error {
	return c.putItem(ctx, tableName, item, nil, nil)
}

// PutItemIfNotExists fails with ErrConditionFailed when an item with the same
// key attribute is already stored.
func (c *DynamoDBClient) PutItemIfNotExists(ctx context.Context, tableName string, item interface{}, keyAttr string) error {
	return c.putItem(ctx, tableName, item, aws.String("attribute_not_exists(#k)"), map[string]string{"#k": keyAttr})
}

// PutItemIfExists replaces an item only when it is already stored.
func (c *DynamoDBClient) PutItemIfExists(ctx context.Context, tableName string, item interface{}, keyAttr string) error {
	return c.putItem(ctx, tableName, item, aws.String("attribute_exists(#k)"), map[string]string{"#k": keyAttr})
}

func (c *DynamoDBClient) PutAttributes(ctx context.Context, tableName string, av map[string]types.AttributeValue, condition *string, names map[string]string) error {
	input := &dynamodb.PutItemInput{
		TableName:           aws.String(tableName),
		Item:                av,
		ConditionExpression: condition,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	if _, err := c.svc.PutItem(ctx, input); err != nil {
		if isConditionalFailure(err) {
			return fmt.Errorf("put item %s: %w", tableName, ErrConditionFailed)
		}
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) putItem(ctx context.Context, tableName string, item interface{}, condition *string, names map[string]string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	return c.PutAttributes(ctx, tableName, av, condition, names)
}

func (c *DynamoDBClient) GetAttributes(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	res, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return nil, fmt.Errorf("%w in %s", ErrItemNotFound, tableName)
	}
	return res.Item, nil
}

func (c *DynamoDBClient) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, out interface{}) error {
	item, err := c.GetAttributes(ctx, tableName, key)
	if err != nil {
		return err
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (c *DynamoDBClient) UpdateItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpr string,
	conditionExpr *string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	out interface{},
) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       conditionExpr,
		ExpressionAttributeValues: exprAttrValues,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if len(exprAttrNames) > 0 {
		input.ExpressionAttributeNames = exprAttrNames
	}

	res, err := c.svc.UpdateItem(ctx, input)
	if err != nil {
		if isConditionalFailure(err) {
			return fmt.Errorf("update item %s: %w", tableName, ErrConditionFailed)
		}
		return fmt.Errorf("update item %s: %w", tableName, err)
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

func (c *DynamoDBClient) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	_, err := c.svc.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", tableName, err)
	}
	return nil
}

// QueryAll runs a key condition query and follows pagination to the end.
func (c *DynamoDBClient) QueryAll(
	ctx context.Context,
	tableName string,
	indexName *string,
	keyCondExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	scanIndexForward *bool,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(tableName),
			IndexName:                 indexName,
			KeyConditionExpression:    aws.String(keyCondExpr),
			ExpressionAttributeValues: exprAttrValues,
			ScanIndexForward:          scanIndexForward,
			ExclusiveStartKey:         lastEvaluatedKey,
		}
		if len(exprAttrNames) > 0 {
			input.ExpressionAttributeNames = exprAttrNames
		}

		result, err := c.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query %s[%s]: %w", tableName, aws.ToString(indexName), err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return allItems, nil
}

// QueryPage returns at most limit items, newest first when forward is false.
func (c *DynamoDBClient) QueryPage(
	ctx context.Context,
	tableName string,
	indexName *string,
	keyCondExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	limit int32,
	forward bool,
) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		IndexName:                 indexName,
		KeyConditionExpression:    aws.String(keyCondExpr),
		ExpressionAttributeValues: exprAttrValues,
		ScanIndexForward:          aws.Bool(forward),
		Limit:                     aws.Int32(limit),
	}
	if len(exprAttrNames) > 0 {
		input.ExpressionAttributeNames = exprAttrNames
	}

	out, err := c.svc.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query page %s[%s]: %w", tableName, aws.ToString(indexName), err)
	}
	return out.Items, nil
}

// TransactPutItems writes all items or none of them.
func (c *DynamoDBClient) TransactPutItems(ctx context.Context, puts []TransactPut) error {
	items := make([]types.TransactWriteItem, 0, len(puts))
	for _, p := range puts {
		av, err := attributevalue.MarshalMap(p.Item)
		if err != nil {
			return fmt.Errorf("marshal transact item %s: %w", p.Table, err)
		}
		put := &types.Put{
			TableName: aws.String(p.Table),
			Item:      av,
		}
		if p.MustNotExist != "" {
			put.ConditionExpression = aws.String("attribute_not_exists(#k)")
			put.ExpressionAttributeNames = map[string]string{"#k": p.MustNotExist}
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	_, err := c.svc.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isConditionalFailure(err) {
			return fmt.Errorf("transact write: %w", ErrConditionFailed)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func UnmarshalItems[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
