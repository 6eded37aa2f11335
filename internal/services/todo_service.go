// Package services はビジネスロジックを提供します。
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"serverless-todo/backend/internal/models"
	"serverless-todo/backend/internal/repositories"
)

const (
	// DefaultLimit は limit が指定されなかった場合の件数です。
	DefaultLimit = 5
	// MaxLimit は1ページの上限です。
	MaxLimit = 100
)

var (
	// ErrInvalidParameters は limit / nextKey / sortby / ボディの値が不正な場合のエラーです。
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrAttachmentsDisabled は添付ファイル用バケットが設定されていない場合のエラーです。
	ErrAttachmentsDisabled = errors.New("attachments are not configured")
)

// Attachments は添付ファイルのアップロード先を発行します。
type Attachments interface {
	UploadURL(ctx context.Context, todoID string) (string, error)
	ObjectURL(todoID string) string
}

// ListOptions は一覧取得のページング指定です。
type ListOptions struct {
	Limit   int
	NextKey string
}

// TodoService はTodo関連のビジネスロジックを扱います。
type TodoService struct {
	todoRepo    repositories.TodoRepository
	attachments Attachments
	now         func() time.Time
	newID       func() string
}

// NewTodoService は新しいTodoServiceを作成します。attachments は nil でも構いません。
func NewTodoService(todoRepo repositories.TodoRepository, attachments Attachments) *TodoService {
	return &TodoService{
		todoRepo:    todoRepo,
		attachments: attachments,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// CreateTodo は新しいTodoを作成します。userId は呼び出し元のトークンからのみ設定されます。
func (s *TodoService) CreateTodo(ctx context.Context, userID string, req models.CreateTodoRequest) (*models.TodoItem, error) {
	priority, err := normalizePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	if err := validateDueDate(req.DueDate); err != nil {
		return nil, err
	}

	item := &models.TodoItem{
		UserID:    userID,
		TodoID:    s.newID(),
		CreatedAt: models.FormatCreatedAt(s.now()),
		Name:      req.Name,
		DueDate:   req.DueDate,
		Done:      false,
		Priority:  priority,
	}
	return s.todoRepo.Create(ctx, item)
}

// GetTodos は作成順にユーザーのTodoを取得します。
func (s *TodoService) GetTodos(ctx context.Context, userID string, opts ListOptions) (*models.TodoListResponse, error) {
	cursor, err := decodeListOptions(opts)
	if err != nil {
		return nil, err
	}
	page, err := s.todoRepo.ListByCreation(ctx, userID, opts.Limit, cursor)
	if err != nil {
		return nil, pageError(err)
	}
	return toListResponse(page)
}

// GetTodosByDueDate は期限順 (sortBy は "asc" か "desc") にユーザーのTodoを取得します。
func (s *TodoService) GetTodosByDueDate(ctx context.Context, userID, sortBy string, opts ListOptions) (*models.TodoListResponse, error) {
	var ascending bool
	switch sortBy {
	case "asc":
		ascending = true
	case "desc":
		ascending = false
	default:
		return nil, fmt.Errorf("%w: sortby must be asc or desc", ErrInvalidParameters)
	}
	cursor, err := decodeListOptions(opts)
	if err != nil {
		return nil, err
	}
	page, err := s.todoRepo.ListByDueDate(ctx, userID, ascending, opts.Limit, cursor)
	if err != nil {
		return nil, pageError(err)
	}
	return toListResponse(page)
}

// UpdateTodo は name / dueDate / done / priority を更新し、保存後のTodoを返します。
func (s *TodoService) UpdateTodo(ctx context.Context, todoID, userID string, req models.UpdateTodoRequest) (*models.TodoItem, error) {
	if !req.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidParameters, req.Priority)
	}
	if err := validateDueDate(req.DueDate); err != nil {
		return nil, err
	}
	if req.Done == nil {
		return nil, fmt.Errorf("%w: done is required", ErrInvalidParameters)
	}

	patch := models.TodoUpdate{
		Name:     req.Name,
		DueDate:  req.DueDate,
		Done:     *req.Done,
		Priority: req.Priority,
	}
	return s.todoRepo.Update(ctx, todoID, userID, patch)
}

// DeleteTodo はTodoを削除します。
func (s *TodoService) DeleteTodo(ctx context.Context, todoID, userID string) error {
	return s.todoRepo.Delete(ctx, todoID, userID)
}

// CreateAttachmentURL はTodoに attachmentUrl を設定し、アップロード用の署名付きURLを返します。
func (s *TodoService) CreateAttachmentURL(ctx context.Context, todoID, userID string) (string, error) {
	if s.attachments == nil {
		return "", ErrAttachmentsDisabled
	}
	if err := s.todoRepo.SetAttachmentURL(ctx, todoID, userID, s.attachments.ObjectURL(todoID)); err != nil {
		return "", err
	}
	return s.attachments.UploadURL(ctx, todoID)
}

func normalizePriority(p models.Priority) (models.Priority, error) {
	if p == "" {
		return models.PriorityMedium, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidParameters, p)
	}
	return p, nil
}

func validateDueDate(dueDate string) error {
	if _, err := time.Parse(models.DueDateLayout, dueDate); err != nil {
		return fmt.Errorf("%w: dueDate must be YYYY-MM-DD", ErrInvalidParameters)
	}
	return nil
}

func decodeListOptions(opts ListOptions) (repositories.PageKey, error) {
	if opts.Limit < 1 || opts.Limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParameters, MaxLimit)
	}
	cursor, err := repositories.DecodePageKey(opts.NextKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return cursor, nil
}

// pageError は別ユーザーの nextKey などカーソル起因のエラーをパラメータエラーに変換します。
func pageError(err error) error {
	if errors.Is(err, repositories.ErrInvalidPageKey) {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return err
}

func toListResponse(page *repositories.TodoPage) (*models.TodoListResponse, error) {
	nextKey, err := repositories.EncodePageKey(page.NextKey)
	if err != nil {
		return nil, err
	}
	return &models.TodoListResponse{Items: page.Items, NextKey: nextKey}, nil
}
