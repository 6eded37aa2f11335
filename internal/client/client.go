// Package client はTodo APIのHTTPクライアントです。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"serverless-todo/backend/internal/models"
)

// APIError は2xx以外のレスポンスです。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Page は一覧取得のページ指定です。NextKey が空なら先頭から取得します。
type Page struct {
	Limit   int
	NextKey string
}

// Client はIDトークンを付けてAPIを呼び出します。
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New は新しいClientを作成します。
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// GetTodos は作成順のTodo一覧を取得します。
func (c *Client) GetTodos(ctx context.Context, page Page) (*models.TodoListResponse, error) {
	var res models.TodoListResponse
	if err := c.do(ctx, http.MethodGet, "/todos"+page.query(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetTodosByDueDate は期限順のTodo一覧を取得します。sortBy は "asc" か "desc" です。
func (c *Client) GetTodosByDueDate(ctx context.Context, sortBy string, page Page) (*models.TodoListResponse, error) {
	var res models.TodoListResponse
	path := "/todos/dueDate/" + url.PathEscape(sortBy) + page.query()
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateTodo はTodoを作成し、サーバーが採番したTodoを返します。
func (c *Client) CreateTodo(ctx context.Context, req models.CreateTodoRequest) (*models.TodoItem, error) {
	var res models.TodoItemResponse
	if err := c.do(ctx, http.MethodPost, "/todos", req, &res); err != nil {
		return nil, err
	}
	return &res.Item, nil
}

// PatchTodo は name / dueDate / done / priority を更新します。
func (c *Client) PatchTodo(ctx context.Context, todoID string, patch models.TodoUpdate) (*models.TodoItem, error) {
	var res models.TodoItemResponse
	if err := c.do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(todoID), patch, &res); err != nil {
		return nil, err
	}
	return &res.Item, nil
}

// DeleteTodo はTodoを削除します。
func (c *Client) DeleteTodo(ctx context.Context, todoID string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(todoID), nil, nil)
}

// GetUploadURL は添付ファイルのアップロード用URLを取得します。
func (c *Client) GetUploadURL(ctx context.Context, todoID string) (string, error) {
	var res models.UploadURLResponse
	if err := c.do(ctx, http.MethodPost, "/todos/"+url.PathEscape(todoID)+"/attachment", nil, &res); err != nil {
		return "", err
	}
	return res.UploadURL, nil
}

func (p Page) query() string {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.NextKey != "" {
		q.Set("nextKey", p.NextKey)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// IsStatus は err が指定ステータスの APIError かどうかを返します。
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
