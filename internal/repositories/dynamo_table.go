package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// tableWaitTimeout はテーブルが ACTIVE になるまで待つ上限です。
const tableWaitTimeout = 2 * time.Minute

// EnsureTable はテーブルが無ければ、createdAt / dueDate の2つのGSI付きで作成します。
// オフライン (ローカルDynamoDB) 用で、本番のテーブルはインフラ側で作成されます。
func (r *DynamoTodoRepository) EnsureTable(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("could not describe table %s: %w", r.table, Classify(err))
	}

	r.logger.Info("Creating todos table", "table", r.table)
	_, err = r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(r.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("userId"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("todoId"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(sortByCreatedAt), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(sortByDueDate), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("userId"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("todoId"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			userIndex(r.createdAtIndex, sortByCreatedAt),
			userIndex(r.dueDateIndex, sortByDueDate),
		},
	})
	if err != nil {
		return fmt.Errorf("could not create table %s: %w", r.table, Classify(err))
	}

	waiter := dynamodb.NewTableExistsWaiter(r.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = time.Second
		o.MaxDelay = 5 * time.Second
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("table %s did not become active: %w", r.table, err)
	}
	return nil
}

// Ping はテーブルを参照できるか確認します。
func (r *DynamoTodoRepository) Ping(ctx context.Context) error {
	if _, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)}); err != nil {
		return Classify(err)
	}
	return nil
}

func userIndex(name, sortAttr string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("userId"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(sortAttr), KeyType: types.KeyTypeRange},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}
