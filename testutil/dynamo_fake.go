package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FakeDynamo はテスト用のインメモリDynamoDBです。
// repositories.DynamoClient を満たし、Query はGSIのソートキー順を再現します。
type FakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	indexes map[string]string // インデックス名 -> ソートキー属性

	// TableExists が false の間、DescribeTable は ResourceNotFoundException を返します。
	TableExists bool
	// CreatedTable は最後に受け取った CreateTable の入力です。
	CreatedTable *dynamodb.CreateTableInput
	// PageCap が 0 より大きいと、Query は Limit に関係なくその件数で打ち切ります (1MB上限の再現)。
	PageCap int
	// Err が設定されている間、データ操作はすべてこのエラーを返します。
	Err error
}

// NewFakeDynamo は indexes (インデックス名 -> ソートキー属性) を持つ空のテーブルを作成します。
func NewFakeDynamo(indexes map[string]string) *FakeDynamo {
	return &FakeDynamo{
		items:       map[string]map[string]types.AttributeValue{},
		indexes:     indexes,
		TableExists: true,
	}
}

// Len は保存されているアイテム数です。
func (f *FakeDynamo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Item は (userId, todoId) のアイテムのコピーを返します。
func (f *FakeDynamo) Item(userID, todoID string) (map[string]types.AttributeValue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[storageKey(userID, todoID)]
	if !ok {
		return nil, false
	}
	return copyItem(item), true
}

func (f *FakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.items[storageKey(stringAttr(params.Item, "userId"), stringAttr(params.Item, "todoId"))] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *FakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	key := storageKey(stringAttr(params.Key, "userId"), stringAttr(params.Key, "todoId"))
	item, exists := f.items[key]
	if cond := aws.ToString(params.ConditionExpression); cond != "" {
		if cond != "attribute_exists(todoId)" {
			return nil, fmt.Errorf("fake dynamo: unsupported condition %q", cond)
		}
		if !exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	if !exists {
		item = copyItem(params.Key)
	} else {
		item = copyItem(item)
	}

	expr := strings.TrimSpace(aws.ToString(params.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("fake dynamo: unsupported update expression %q", expr)
	}
	for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("fake dynamo: malformed assignment %q", assignment)
		}
		name := strings.TrimSpace(parts[0])
		if strings.HasPrefix(name, "#") {
			name = params.ExpressionAttributeNames[name]
		}
		value, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, fmt.Errorf("fake dynamo: missing value for %q", assignment)
		}
		item[name] = value
	}
	f.items[key] = item

	out := &dynamodb.UpdateItemOutput{}
	if params.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(item)
	}
	return out, nil
}

func (f *FakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	delete(f.items, storageKey(stringAttr(params.Key, "userId"), stringAttr(params.Key, "todoId")))
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query は "userId = :pk" のキー条件だけをサポートします。
func (f *FakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	sortAttr := "todoId"
	if params.IndexName != nil {
		attr, ok := f.indexes[*params.IndexName]
		if !ok {
			return nil, fmt.Errorf("fake dynamo: unknown index %q", *params.IndexName)
		}
		sortAttr = attr
	}
	pk := stringAttr(params.ExpressionAttributeValues, ":pk")

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if stringAttr(item, "userId") != pk {
			continue
		}
		if _, ok := item[sortAttr]; !ok {
			continue // GSI はソートキーを持たないアイテムを含まない
		}
		matched = append(matched, item)
	}

	ascending := params.ScanIndexForward == nil || *params.ScanIndexForward
	less := func(a, b map[string]types.AttributeValue) bool {
		as, bs := stringAttr(a, sortAttr), stringAttr(b, sortAttr)
		if as != bs {
			return as < bs
		}
		return stringAttr(a, "todoId") < stringAttr(b, "todoId")
	}
	sort.Slice(matched, func(i, j int) bool {
		if ascending {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	if start := params.ExclusiveStartKey; len(start) > 0 {
		i := 0
		for i < len(matched) {
			var after bool
			if ascending {
				after = less(start, matched[i])
			} else {
				after = less(matched[i], start)
			}
			if after {
				break
			}
			i++
		}
		matched = matched[i:]
	}

	limit := len(matched)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}
	if f.PageCap > 0 && f.PageCap < limit {
		limit = f.PageCap
	}

	out := &dynamodb.QueryOutput{}
	for _, item := range matched[:limit] {
		out.Items = append(out.Items, copyItem(item))
	}
	out.Count = int32(len(out.Items))
	if limit < len(matched) && limit > 0 {
		last := matched[limit-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"userId": last["userId"],
			"todoId": last["todoId"],
		}
		if sortAttr != "todoId" {
			out.LastEvaluatedKey[sortAttr] = last[sortAttr]
		}
	}
	return out, nil
}

func (f *FakeDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.TableExists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   params.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func (f *FakeDynamo) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if f.TableExists {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.TableExists = true
	f.CreatedTable = params
	return &dynamodb.CreateTableOutput{
		TableDescription: &types.TableDescription{
			TableName:   params.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func storageKey(userID, todoID string) string {
	return userID + "\x00" + todoID
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
