package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"serverless-todo/backend/internal/models"
)

// MySQLTodoRepository はDynamoDBの代わりにMySQLを使うリポジトリです (STORE_DRIVER=mysql)。
// 2つのインデックスは (user_id, created_at, todo_id) / (user_id, due_date, todo_id) の複合インデックスで表現します。
type MySQLTodoRepository struct {
	DB     *sql.DB
	logger *log.Logger
}

// NewMySQLTodoRepository は新しいMySQLTodoRepositoryインスタンスを作成します。
func NewMySQLTodoRepository(db *sql.DB, logger *log.Logger) *MySQLTodoRepository {
	return &MySQLTodoRepository{DB: db, logger: logger}
}

var _ TodoRepository = (*MySQLTodoRepository)(nil)

const createTodosTableSQL = `
	CREATE TABLE IF NOT EXISTS todos (
		user_id VARCHAR(255) NOT NULL,
		todo_id VARCHAR(64) NOT NULL,
		created_at VARCHAR(32) NOT NULL,
		name VARCHAR(255) NOT NULL,
		due_date VARCHAR(10) NOT NULL,
		done BOOLEAN NOT NULL DEFAULT FALSE,
		priority VARCHAR(16) NOT NULL,
		attachment_url TEXT NULL,
		PRIMARY KEY (user_id, todo_id),
		INDEX idx_todos_created_at (user_id, created_at, todo_id),
		INDEX idx_todos_due_date (user_id, due_date, todo_id)
	);`

// Migrate は todos テーブルを作成します。
func (r *MySQLTodoRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, createTodosTableSQL); err != nil {
		return fmt.Errorf("could not create todos table: %w", err)
	}
	return nil
}

// Ping はMySQLへの疎通を確認します。
func (r *MySQLTodoRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

const selectTodoColumns = "SELECT user_id, todo_id, created_at, name, due_date, done, priority, attachment_url FROM todos"

// ListByCreation は作成日時順にユーザーのTodoを取得します。
func (r *MySQLTodoRepository) ListByCreation(ctx context.Context, userID string, limit int, cursor PageKey) (*TodoPage, error) {
	r.logger.Info("Getting all todos", "userId", userID, "limit", limit)
	return r.list(ctx, "created_at", sortByCreatedAt, userID, true, limit, cursor)
}

// ListByDueDate は期限順にユーザーのTodoを取得します。
func (r *MySQLTodoRepository) ListByDueDate(ctx context.Context, userID string, ascending bool, limit int, cursor PageKey) (*TodoPage, error) {
	r.logger.Info("Getting all todos by due date", "userId", userID, "ascending", ascending, "limit", limit)
	return r.list(ctx, "due_date", sortByDueDate, userID, ascending, limit, cursor)
}

// column は固定値 (created_at / due_date) のみ。ユーザー入力は渡さないこと。
func (r *MySQLTodoRepository) list(ctx context.Context, column, sortAttr, userID string, ascending bool, limit int, cursor PageKey) (*TodoPage, error) {
	cmp, order := ">", "ASC"
	if !ascending {
		cmp, order = "<", "DESC"
	}

	query := selectTodoColumns + " WHERE user_id = ?"
	args := []any{userID}
	if cursor != nil {
		if err := cursor.check(userID, sortAttr); err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND (%s, todo_id) %s (?, ?)", column, cmp)
		args = append(args, cursor[sortAttr], cursor["todoId"])
	}
	query += fmt.Sprintf(" ORDER BY %s %s, todo_id %s LIMIT ?", column, order, order)
	args = append(args, limit+1)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query todos", "err", err)
		return nil, fmt.Errorf("could not query todos: %w", &OpError{Cause: err})
	}
	defer rows.Close()

	var items []models.TodoItem
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan todo: %w", err)
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	return trimPage(items, limit, sortAttr), nil
}

// Create は新しいTodoタスクをデータベースに挿入します。
func (r *MySQLTodoRepository) Create(ctx context.Context, item *models.TodoItem) (*models.TodoItem, error) {
	r.logger.Info("Create new todo", "userId", item.UserID, "todoId", item.TodoID)

	query := "INSERT INTO todos (user_id, todo_id, created_at, name, due_date, done, priority, attachment_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := r.DB.ExecContext(ctx, query,
		item.UserID, item.TodoID, item.CreatedAt, item.Name, item.DueDate, item.Done, string(item.Priority), nullString(item.AttachmentURL))
	if err != nil {
		r.logger.Error("Failed to insert todo", "err", err)
		return nil, fmt.Errorf("could not insert todo: %w", &OpError{Cause: err})
	}
	return item, nil
}

// Update は指定されたTodoの name / dueDate / done / priority を更新します。
func (r *MySQLTodoRepository) Update(ctx context.Context, todoID, userID string, patch models.TodoUpdate) (*models.TodoItem, error) {
	r.logger.Info("Update todo", "userId", userID, "todoId", todoID)

	query := "UPDATE todos SET name = ?, due_date = ?, done = ?, priority = ? WHERE user_id = ? AND todo_id = ?"
	if _, err := r.DB.ExecContext(ctx, query, patch.Name, patch.DueDate, patch.Done, string(patch.Priority), userID, todoID); err != nil {
		r.logger.Error("Failed to update todo", "err", err)
		return nil, fmt.Errorf("could not update todo: %w", &OpError{Cause: err})
	}

	// 値が変わらない場合 RowsAffected は 0 になるため、存在確認は SELECT で行う
	return r.findByID(ctx, todoID, userID)
}

// Delete は指定されたTodoを削除します。存在しなくてもエラーにはしません。
func (r *MySQLTodoRepository) Delete(ctx context.Context, todoID, userID string) error {
	r.logger.Info("Delete todo", "userId", userID, "todoId", todoID)

	if _, err := r.DB.ExecContext(ctx, "DELETE FROM todos WHERE user_id = ? AND todo_id = ?", userID, todoID); err != nil {
		r.logger.Error("Failed to delete todo", "err", err)
		return fmt.Errorf("could not delete todo: %w", &OpError{Cause: err})
	}
	return nil
}

// SetAttachmentURL は attachment_url を設定します。
func (r *MySQLTodoRepository) SetAttachmentURL(ctx context.Context, todoID, userID, url string) error {
	if _, err := r.findByID(ctx, todoID, userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE todos SET attachment_url = ? WHERE user_id = ? AND todo_id = ?", url, userID, todoID)
	if err != nil {
		return fmt.Errorf("could not update todo attachment: %w", &OpError{Cause: err})
	}
	return nil
}

func (r *MySQLTodoRepository) findByID(ctx context.Context, todoID, userID string) (*models.TodoItem, error) {
	row := r.DB.QueryRowContext(ctx, selectTodoColumns+" WHERE user_id = ? AND todo_id = ?", userID, todoID)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not query todo: %w", &OpError{Cause: err})
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (*models.TodoItem, error) {
	var (
		t          models.TodoItem
		priority   string
		attachment sql.NullString
	)
	if err := s.Scan(&t.UserID, &t.TodoID, &t.CreatedAt, &t.Name, &t.DueDate, &t.Done, &priority, &attachment); err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority)
	if attachment.Valid {
		t.AttachmentURL = &attachment.String
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
