package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverless-todo/backend/internal/logging"
	"serverless-todo/backend/internal/models"
	"serverless-todo/backend/internal/repositories"
	"serverless-todo/backend/testutil"
)

func setupDynamoRepo(t *testing.T) (*repositories.DynamoTodoRepository, *testutil.FakeDynamo) {
	t.Helper()
	cfg := testutil.TestConfig().Dynamo
	store := testutil.NewFakeDynamoFor(cfg)
	return repositories.NewDynamoTodoRepository(store, cfg, logging.Discard()), store
}

// seed は createdAt が i 番目、dueDate が逆順になるように n 件作成します。
func seed(t *testing.T, repo repositories.TodoRepository, userID string, n int) []models.TodoItem {
	t.Helper()
	var items []models.TodoItem
	for i := 0; i < n; i++ {
		item := &models.TodoItem{
			UserID:    userID,
			TodoID:    fmt.Sprintf("todo-%02d", i),
			CreatedAt: fmt.Sprintf("2024-01-01T00:00:%02d.000Z", i),
			Name:      fmt.Sprintf("task %d", i),
			DueDate:   fmt.Sprintf("2024-02-%02d", 28-i),
			Priority:  models.PriorityMedium,
		}
		created, err := repo.Create(context.Background(), item)
		require.NoError(t, err)
		items = append(items, *created)
	}
	return items
}

func todoIDs(items []models.TodoItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TodoID)
	}
	return ids
}

func TestDynamoListByCreation_Pagination(t *testing.T) {
	repo, _ := setupDynamoRepo(t)
	ctx := context.Background()
	seed(t, repo, "user-1", 5)
	seed(t, repo, "user-2", 2)

	// --- Test Case 1: limit 2 で3ページに分かれる ---
	page, err := repo.ListByCreation(ctx, "user-1", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-00", "todo-01"}, todoIDs(page.Items))
	require.NotNil(t, page.NextKey)

	page, err = repo.ListByCreation(ctx, "user-1", 2, page.NextKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-02", "todo-03"}, todoIDs(page.Items))
	require.NotNil(t, page.NextKey)

	page, err = repo.ListByCreation(ctx, "user-1", 2, page.NextKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-04"}, todoIDs(page.Items))
	assert.Nil(t, page.NextKey, "no more items")

	// --- Test Case 2: ちょうど limit 件なら nextKey は無い ---
	page, err = repo.ListByCreation(ctx, "user-2", 2, nil)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Nil(t, page.NextKey)

	// --- Test Case 3: アイテムが無いユーザー ---
	page, err = repo.ListByCreation(ctx, "nobody", 5, nil)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextKey)
}

func TestDynamoListByDueDate_Directions(t *testing.T) {
	repo, _ := setupDynamoRepo(t)
	ctx := context.Background()
	seed(t, repo, "user-1", 4)

	asc, err := repo.ListByDueDate(ctx, "user-1", true, 10, nil)
	require.NoError(t, err)
	desc, err := repo.ListByDueDate(ctx, "user-1", false, 10, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"todo-03", "todo-02", "todo-01", "todo-00"}, todoIDs(asc.Items))
	reversed := todoIDs(desc.Items)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, todoIDs(asc.Items), reversed)

	// 降順でもページングが続く
	page, err := repo.ListByDueDate(ctx, "user-1", false, 3, nil)
	require.NoError(t, err)
	require.NotNil(t, page.NextKey)
	page, err = repo.ListByDueDate(ctx, "user-1", false, 3, page.NextKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-03"}, todoIDs(page.Items))
	assert.Nil(t, page.NextKey)
}

func TestDynamoList_RejectsForeignCursor(t *testing.T) {
	repo, _ := setupDynamoRepo(t)
	ctx := context.Background()
	seed(t, repo, "user-1", 3)

	page, err := repo.ListByCreation(ctx, "user-1", 1, nil)
	require.NoError(t, err)
	require.NotNil(t, page.NextKey)

	_, err = repo.ListByCreation(ctx, "user-2", 1, page.NextKey)
	assert.ErrorIs(t, err, repositories.ErrInvalidPageKey)

	// createdAt インデックスのカーソルは dueDate インデックスでは使えない
	_, err = repo.ListByDueDate(ctx, "user-1", true, 1, page.NextKey)
	assert.ErrorIs(t, err, repositories.ErrInvalidPageKey)

	// 余分な属性を足したカーソルはストアに渡さない
	forged := repositories.PageKey{"bogus": "z"}
	for name, value := range page.NextKey {
		forged[name] = value
	}
	_, err = repo.ListByCreation(ctx, "user-1", 1, forged)
	assert.ErrorIs(t, err, repositories.ErrInvalidPageKey)
}

func TestDynamoList_StoreStopsEarly(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()
	seed(t, repo, "user-1", 5)
	store.PageCap = 2

	page, err := repo.ListByCreation(ctx, "user-1", 4, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-00", "todo-01"}, todoIDs(page.Items))
	require.NotNil(t, page.NextKey, "the store's last key is passed through")

	store.PageCap = 0
	page, err = repo.ListByCreation(ctx, "user-1", 4, page.NextKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-02", "todo-03", "todo-04"}, todoIDs(page.Items))
	assert.Nil(t, page.NextKey)
}

func TestDynamoUpdate(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()
	original := seed(t, repo, "user-1", 1)[0]

	patch := models.TodoUpdate{Name: "renamed", DueDate: "2025-01-01", Done: true, Priority: models.PriorityHigh}
	updated, err := repo.Update(ctx, original.TodoID, "user-1", patch)
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "2025-01-01", updated.DueDate)
	assert.True(t, updated.Done)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	// 更新対象外のフィールドは変わらない
	assert.Equal(t, original.TodoID, updated.TodoID)
	assert.Equal(t, original.UserID, updated.UserID)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)

	_, ok := store.Item("user-1", original.TodoID)
	assert.True(t, ok)

	t.Run("absent id", func(t *testing.T) {
		_, err := repo.Update(ctx, "missing", "user-1", patch)
		assert.ErrorIs(t, err, repositories.ErrTodoNotFound)
		_, ok := store.Item("user-1", "missing")
		assert.False(t, ok, "no phantom item is created")
	})

	t.Run("other user's id", func(t *testing.T) {
		_, err := repo.Update(ctx, original.TodoID, "user-2", patch)
		assert.ErrorIs(t, err, repositories.ErrTodoNotFound)
	})
}

func TestDynamoDelete(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()
	items := seed(t, repo, "user-1", 2)

	require.NoError(t, repo.Delete(ctx, items[0].TodoID, "user-1"))
	assert.Equal(t, 1, store.Len())

	// 存在しない id の削除はエラーにならない
	require.NoError(t, repo.Delete(ctx, "missing", "user-1"))
	require.NoError(t, repo.Delete(ctx, items[0].TodoID, "user-1"))
	assert.Equal(t, 1, store.Len())
}

func TestDynamoSetAttachmentURL(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()
	item := seed(t, repo, "user-1", 1)[0]

	require.NoError(t, repo.SetAttachmentURL(ctx, item.TodoID, "user-1", "https://b.s3.amazonaws.com/"+item.TodoID))
	av, ok := store.Item("user-1", item.TodoID)
	require.True(t, ok)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "https://b.s3.amazonaws.com/" + item.TodoID}, av["attachmentUrl"])

	page, err := repo.ListByCreation(ctx, "user-1", 5, nil)
	require.NoError(t, err)
	require.NotNil(t, page.Items[0].AttachmentURL)

	err = repo.SetAttachmentURL(ctx, "missing", "user-1", "x")
	assert.ErrorIs(t, err, repositories.ErrTodoNotFound)
}

func TestDynamo_StoreErrorsAreClassified(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()

	store.Err = &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
	_, err := repo.ListByCreation(ctx, "user-1", 5, nil)
	require.Error(t, err)
	assert.True(t, repositories.IsRetryable(err))

	store.Err = errors.New("connection reset")
	err = repo.Delete(ctx, "x", "user-1")
	var opErr *repositories.OpError
	assert.ErrorAs(t, err, &opErr)
	assert.False(t, repositories.IsRetryable(err))
}

func TestEnsureTable(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()

	// 既に存在する場合は何もしない
	require.NoError(t, repo.EnsureTable(ctx))
	assert.Nil(t, store.CreatedTable)

	store.TableExists = false
	require.NoError(t, repo.EnsureTable(ctx))
	require.NotNil(t, store.CreatedTable)
	assert.Equal(t, "Todos", *store.CreatedTable.TableName)

	indexes := map[string]string{}
	for _, gsi := range store.CreatedTable.GlobalSecondaryIndexes {
		require.Len(t, gsi.KeySchema, 2)
		assert.Equal(t, "userId", *gsi.KeySchema[0].AttributeName)
		indexes[*gsi.IndexName] = *gsi.KeySchema[1].AttributeName
	}
	assert.Equal(t, map[string]string{"CreatedAtIndex": "createdAt", "DueDateIndex": "dueDate"}, indexes)
}

func TestDynamoPing(t *testing.T) {
	repo, store := setupDynamoRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ping(ctx))

	store.TableExists = false
	assert.Error(t, repo.Ping(ctx))
}
