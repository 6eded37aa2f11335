package repositories

import (
	"context"

	"serverless-todo/backend/internal/models"
)

// TodoPage は一覧クエリの1ページ分の結果です。
type TodoPage struct {
	Items   []models.TodoItem
	NextKey PageKey // nil ならこれ以上の結果はありません
}

// TodoRepository はTodoのデータアクセス層です。
// 更新は存在するアイテムに対してのみ行い (無ければ ErrTodoNotFound)、それ以外は最後の書き込みが勝ちます。
type TodoRepository interface {
	ListByCreation(ctx context.Context, userID string, limit int, cursor PageKey) (*TodoPage, error)
	ListByDueDate(ctx context.Context, userID string, ascending bool, limit int, cursor PageKey) (*TodoPage, error)
	Create(ctx context.Context, item *models.TodoItem) (*models.TodoItem, error)
	Update(ctx context.Context, todoID, userID string, patch models.TodoUpdate) (*models.TodoItem, error)
	Delete(ctx context.Context, todoID, userID string) error
	SetAttachmentURL(ctx context.Context, todoID, userID, url string) error
	Ping(ctx context.Context) error
}

const (
	sortByCreatedAt = "createdAt"
	sortByDueDate   = "dueDate"
)

// indexKey はインデックス上でアイテムを一意に指すキーを作ります。
func indexKey(item models.TodoItem, sortAttr string) PageKey {
	key := PageKey{"userId": item.UserID, "todoId": item.TodoID}
	switch sortAttr {
	case sortByCreatedAt:
		key[sortByCreatedAt] = item.CreatedAt
	case sortByDueDate:
		key[sortByDueDate] = item.DueDate
	}
	return key
}

// trimPage は limit+1 件読んだ結果を limit 件に切り詰め、続きがあれば nextKey を作ります。
func trimPage(items []models.TodoItem, limit int, sortAttr string) *TodoPage {
	if items == nil {
		items = []models.TodoItem{}
	}
	if len(items) <= limit {
		return &TodoPage{Items: items}
	}
	items = items[:limit]
	return &TodoPage{Items: items, NextKey: indexKey(items[limit-1], sortAttr)}
}
