// Package handlers はHTTPハンドラーを提供します。
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"serverless-todo/backend/internal/models"
	"serverless-todo/backend/internal/services"
	"serverless-todo/backend/internal/validation"
)

// UserIDKey は認証ミドルウェアが userId を格納するコンテキストキーです。
const UserIDKey = "user_id"

// TodoHandler はTodo関連のハンドラーを管理します。
// パラメータの検証エラーはここで 400 を返し、それ以外は c.Error でエラーミドルウェアに渡します。
type TodoHandler struct {
	todoService *services.TodoService
	validator   *validation.Validator
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService, validator *validation.Validator) *TodoHandler {
	return &TodoHandler{todoService: todoService, validator: validator}
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		invalidPayload(c, err)
		return
	}
	if err := h.validator.CreateTodo(raw); err != nil {
		invalidPayload(c, err)
		return
	}
	var req models.CreateTodoRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		invalidPayload(c, err)
		return
	}

	item, err := h.todoService.CreateTodo(c.Request.Context(), userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, models.TodoItemResponse{Item: *item})
}

// GetTodosHandler は作成順にTodoリストを取得します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	opts, err := listOptions(c)
	if err != nil {
		invalidParameters(c)
		return
	}

	res, err := h.todoService.GetTodos(c.Request.Context(), userID, opts)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetTodosByDueDateHandler は期限順にTodoリストを取得します。sortby は asc か desc です。
func (h *TodoHandler) GetTodosByDueDateHandler(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	sortBy := c.Param("sortby")
	if sortBy != "asc" && sortBy != "desc" {
		invalidParameters(c)
		return
	}
	opts, err := listOptions(c)
	if err != nil {
		invalidParameters(c)
		return
	}

	res, err := h.todoService.GetTodosByDueDate(c.Request.Context(), userID, sortBy, opts)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateTodoHandler はTodoを更新します。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	todoID := c.Param("todoId")

	raw, err := c.GetRawData()
	if err != nil {
		invalidPayload(c, err)
		return
	}
	if err := h.validator.UpdateTodo(raw); err != nil {
		invalidPayload(c, err)
		return
	}
	var req models.UpdateTodoRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		invalidPayload(c, err)
		return
	}

	item, err := h.todoService.UpdateTodo(c.Request.Context(), todoID, userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.TodoItemResponse{Item: *item})
}

// DeleteTodoHandler はTodoを削除します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	if err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("todoId"), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateAttachmentURLHandler は添付ファイルのアップロード用URLを発行します。
func (h *TodoHandler) CreateAttachmentURLHandler(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	url, err := h.todoService.CreateAttachmentURL(c.Request.Context(), c.Param("todoId"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.UploadURLResponse{UploadURL: url})
}

func userIDFromContext(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get(UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return "", false
	}
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return "", false
	}
	return userID, true
}

// listOptions は limit (省略時 5) と nextKey を読み取ります。範囲チェックはサービス側で行います。
func listOptions(c *gin.Context) (services.ListOptions, error) {
	opts := services.ListOptions{Limit: services.DefaultLimit, NextKey: c.Query("nextKey")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return opts, err
		}
		opts.Limit = limit
	}
	return opts, nil
}

func invalidParameters(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameters"})
}

func invalidPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
}
