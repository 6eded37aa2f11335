package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/charmbracelet/log"

	"serverless-todo/backend/internal/config"
	"serverless-todo/backend/internal/models"
)

// DynamoClient は本物のDynamoDBクライアントとテスト用フェイクの両方が満たすインターフェースです。
type DynamoClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoTodoRepository はDynamoDBのテーブルと2つのGSI (createdAt / dueDate) を使うリポジトリです。
type DynamoTodoRepository struct {
	client         DynamoClient
	table          string
	createdAtIndex string
	dueDateIndex   string
	logger         *log.Logger
}

// NewDynamoTodoRepository は新しいDynamoTodoRepositoryを作成します。
func NewDynamoTodoRepository(client DynamoClient, cfg config.DynamoConfig, logger *log.Logger) *DynamoTodoRepository {
	return &DynamoTodoRepository{
		client:         client,
		table:          cfg.TodosTable,
		createdAtIndex: cfg.CreatedAtIndex,
		dueDateIndex:   cfg.DueDateIndex,
		logger:         logger,
	}
}

var _ TodoRepository = (*DynamoTodoRepository)(nil)

// ListByCreation は作成日時インデックスでユーザーのTodoを取得します。
func (r *DynamoTodoRepository) ListByCreation(ctx context.Context, userID string, limit int, cursor PageKey) (*TodoPage, error) {
	r.logger.Info("Getting all todos", "userId", userID, "limit", limit)
	return r.query(ctx, r.createdAtIndex, sortByCreatedAt, userID, true, limit, cursor)
}

// ListByDueDate は期限インデックスでユーザーのTodoを取得します。
func (r *DynamoTodoRepository) ListByDueDate(ctx context.Context, userID string, ascending bool, limit int, cursor PageKey) (*TodoPage, error) {
	r.logger.Info("Getting all todos by due date", "userId", userID, "ascending", ascending, "limit", limit)
	return r.query(ctx, r.dueDateIndex, sortByDueDate, userID, ascending, limit, cursor)
}

func (r *DynamoTodoRepository) query(ctx context.Context, index, sortAttr, userID string, ascending bool, limit int, cursor PageKey) (*TodoPage, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("userId = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userID},
		},
		// 1件多く読んで、続きがあるかどうかを正確に判定する
		Limit:            aws.Int32(int32(limit + 1)),
		ScanIndexForward: aws.Bool(ascending),
	}
	if cursor != nil {
		if err := cursor.check(userID, sortAttr); err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = cursor.attributeValues()
	}

	out, err := r.client.Query(ctx, input)
	if err != nil {
		r.logger.Error("Failed to query todos", "index", index, "err", err)
		return nil, fmt.Errorf("could not query todos: %w", Classify(err))
	}

	var items []models.TodoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("could not unmarshal todos: %w", err)
	}

	page := trimPage(items, limit, sortAttr)
	if page.NextKey == nil && len(out.LastEvaluatedKey) > 0 && len(items) > 0 {
		// 1MB の上限で途中終了した場合はストアのキーをそのまま使う
		page.NextKey = pageKeyFromAttributes(out.LastEvaluatedKey)
	}
	return page, nil
}

// Create は新しいTodoを無条件に書き込みます。
func (r *DynamoTodoRepository) Create(ctx context.Context, item *models.TodoItem) (*models.TodoItem, error) {
	r.logger.Info("Create new todo", "userId", item.UserID, "todoId", item.TodoID)

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("could not marshal todo: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	})
	if err != nil {
		r.logger.Error("Failed to insert todo", "err", err)
		return nil, fmt.Errorf("could not insert todo: %w", Classify(err))
	}
	return item, nil
}

// Update は name / dueDate / done / priority を上書きします。
// バージョンチェックは行わないので、同時更新は最後の書き込みが勝ちます。
// 存在しない todoId には ErrTodoNotFound を返します。
func (r *DynamoTodoRepository) Update(ctx context.Context, todoID, userID string, patch models.TodoUpdate) (*models.TodoItem, error) {
	r.logger.Info("Update todo", "userId", userID, "todoId", todoID)

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 itemKey(todoID, userID),
		UpdateExpression:    aws.String("SET #todo_name = :name, dueDate = :dueDate, done = :done, priority = :priority"),
		ConditionExpression: aws.String("attribute_exists(todoId)"),
		ExpressionAttributeNames: map[string]string{
			"#todo_name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":     &types.AttributeValueMemberS{Value: patch.Name},
			":dueDate":  &types.AttributeValueMemberS{Value: patch.DueDate},
			":done":     &types.AttributeValueMemberBOOL{Value: patch.Done},
			":priority": &types.AttributeValueMemberS{Value: string(patch.Priority)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionCheckFailed(err) {
			return nil, ErrTodoNotFound
		}
		r.logger.Error("Failed to update todo", "err", err)
		return nil, fmt.Errorf("could not update todo: %w", Classify(err))
	}

	var item models.TodoItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("could not unmarshal todo: %w", err)
	}
	return &item, nil
}

// Delete はTodoを削除します。存在しないキーでもエラーにはなりません。
func (r *DynamoTodoRepository) Delete(ctx context.Context, todoID, userID string) error {
	r.logger.Info("Delete todo", "userId", userID, "todoId", todoID)

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       itemKey(todoID, userID),
	})
	if err != nil {
		r.logger.Error("Failed to delete todo", "err", err)
		return fmt.Errorf("could not delete todo: %w", Classify(err))
	}
	return nil
}

// SetAttachmentURL は attachmentUrl を設定します。
func (r *DynamoTodoRepository) SetAttachmentURL(ctx context.Context, todoID, userID, url string) error {
	r.logger.Info("Update todo attachment", "userId", userID, "todoId", todoID)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 itemKey(todoID, userID),
		UpdateExpression:    aws.String("SET attachmentUrl = :url"),
		ConditionExpression: aws.String("attribute_exists(todoId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":url": &types.AttributeValueMemberS{Value: url},
		},
	})
	if err != nil {
		if isConditionCheckFailed(err) {
			return ErrTodoNotFound
		}
		return fmt.Errorf("could not update todo attachment: %w", Classify(err))
	}
	return nil
}

func itemKey(todoID, userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
		"todoId": &types.AttributeValueMemberS{Value: todoID},
	}
}

func isConditionCheckFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}
