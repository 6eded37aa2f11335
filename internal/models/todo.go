// Package modelsはTodoを定義します。
package models

import "time"

// Priority はTodoの優先度ラベルです。
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities はUIの選択肢と同じ並び順の優先度一覧です。
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid は p が定義済みのラベルかどうかを返します。
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// DueDateLayout は dueDate の形式 (YYYY-MM-DD) です。
const DueDateLayout = "2006-01-02"

// CreatedAtLayout は createdAt の形式です。ミリ秒付きUTCなので文字列順 = 時刻順になります。
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatCreatedAt は t を createdAt の文字列表現に変換します。
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// TodoItem は永続化されるTodoです。
// dynamodbavタグ: DynamoDBの属性名
type TodoItem struct {
	UserID        string   `json:"userId" dynamodbav:"userId"`                                 // パーティションキー (トークンから取得)
	TodoID        string   `json:"todoId" dynamodbav:"todoId"`                                 // ソートキー
	CreatedAt     string   `json:"createdAt" dynamodbav:"createdAt"`                           // createdAtインデックスのソートキー
	Name          string   `json:"name" dynamodbav:"name"`                                     // タスク名
	DueDate       string   `json:"dueDate" dynamodbav:"dueDate"`                               // dueDateインデックスのソートキー
	Done          bool     `json:"done" dynamodbav:"done"`                                     // 完了状態
	Priority      Priority `json:"priority" dynamodbav:"priority"`                             // Low / Medium / High
	AttachmentURL *string  `json:"attachmentUrl,omitempty" dynamodbav:"attachmentUrl,omitempty"` // 添付ファイル (任意)
}

// CreateTodoRequest は POST /todos のリクエストボディです。
// userId がボディに含まれていても無視されます。
type CreateTodoRequest struct {
	Name     string   `json:"name" binding:"required"`
	DueDate  string   `json:"dueDate" binding:"required"`
	Priority Priority `json:"priority"`
}

// UpdateTodoRequest は PATCH /todos/:todoId のリクエストボディです。
// done は false も有効な値なのでポインタで受け取ります。
type UpdateTodoRequest struct {
	Name     string   `json:"name" binding:"required"`
	DueDate  string   `json:"dueDate" binding:"required"`
	Done     *bool    `json:"done" binding:"required"`
	Priority Priority `json:"priority" binding:"required"`
}

// TodoUpdate はデータアクセス層に渡す更新内容です。
type TodoUpdate struct {
	Name     string   `json:"name"`
	DueDate  string   `json:"dueDate"`
	Done     bool     `json:"done"`
	Priority Priority `json:"priority"`
}

// TodoListResponse は一覧系エンドポイントのレスポンスです。
// NextKey が nil の場合、これ以上の結果はありません。
type TodoListResponse struct {
	Items   []TodoItem `json:"items"`
	NextKey *string    `json:"nextKey"`
}

// TodoItemResponse は単一Todoのレスポンスです。
type TodoItemResponse struct {
	Item TodoItem `json:"item"`
}

// UploadURLResponse は添付ファイルのアップロードURLです。
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}
