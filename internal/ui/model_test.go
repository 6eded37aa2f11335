package ui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverless-todo/backend/internal/client"
	"serverless-todo/backend/internal/models"
)

// fakeAPI はページングをメモリ上で再現します。nextKey はインデックスの文字列です。
type fakeAPI struct {
	items     []models.TodoItem
	calls     []string
	created   []models.CreateTodoRequest
	failFetch bool
	failWrite bool
}

func (f *fakeAPI) page(items []models.TodoItem, page client.Page) *models.TodoListResponse {
	start := 0
	if page.NextKey != "" {
		fmt.Sscanf(page.NextKey, "%d", &start)
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	res := &models.TodoListResponse{Items: append([]models.TodoItem{}, items[start:end]...)}
	if end < len(items) {
		next := fmt.Sprintf("%d", end)
		res.NextKey = &next
	}
	return res
}

func (f *fakeAPI) GetTodos(ctx context.Context, page client.Page) (*models.TodoListResponse, error) {
	f.calls = append(f.calls, "list:"+page.NextKey)
	if f.failFetch {
		return nil, errors.New("network down")
	}
	return f.page(f.items, page), nil
}

func (f *fakeAPI) GetTodosByDueDate(ctx context.Context, sortBy string, page client.Page) (*models.TodoListResponse, error) {
	f.calls = append(f.calls, "due:"+sortBy+":"+page.NextKey)
	sorted := append([]models.TodoItem{}, f.items...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			swap := sorted[j].DueDate < sorted[i].DueDate
			if sortBy == "desc" {
				swap = sorted[j].DueDate > sorted[i].DueDate
			}
			if swap {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return f.page(sorted, page), nil
}

func (f *fakeAPI) CreateTodo(ctx context.Context, req models.CreateTodoRequest) (*models.TodoItem, error) {
	f.created = append(f.created, req)
	if f.failWrite {
		return nil, &client.APIError{Status: 400, Message: "Invalid request payload"}
	}
	item := models.TodoItem{TodoID: fmt.Sprintf("new-%d", len(f.items)), Name: req.Name, DueDate: req.DueDate, Priority: req.Priority}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeAPI) PatchTodo(ctx context.Context, todoID string, patch models.TodoUpdate) (*models.TodoItem, error) {
	if f.failWrite {
		return nil, errors.New("boom")
	}
	for i := range f.items {
		if f.items[i].TodoID == todoID {
			f.items[i].Name, f.items[i].DueDate, f.items[i].Done, f.items[i].Priority = patch.Name, patch.DueDate, patch.Done, patch.Priority
			item := f.items[i]
			return &item, nil
		}
	}
	return nil, &client.APIError{Status: 404}
}

func (f *fakeAPI) DeleteTodo(ctx context.Context, todoID string) error {
	if f.failWrite {
		return errors.New("boom")
	}
	for i := range f.items {
		if f.items[i].TodoID == todoID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) GetUploadURL(ctx context.Context, todoID string) (string, error) {
	if f.failWrite {
		return "", &client.APIError{Status: 501, Message: "Attachments are not configured"}
	}
	return "https://signed.example/" + todoID, nil
}

func newFakeAPI(n int) *fakeAPI {
	api := &fakeAPI{}
	for i := 0; i < n; i++ {
		api.items = append(api.items, models.TodoItem{
			TodoID:   fmt.Sprintf("t%d", i),
			Name:     fmt.Sprintf("task %d", i),
			DueDate:  fmt.Sprintf("2024-01-%02d", 10-i),
			Priority: models.PriorityMedium,
		})
	}
	return api
}

// send はメッセージを処理し、返されたコマンドを実行して結果も処理します。
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	result := cmd()
	switch result.(type) {
	case todosLoadedMsg, todoCreatedMsg, todoPatchedMsg, todoDeletedMsg, todoEditedMsg, uploadURLMsg:
		return send(t, m, result)
	}
	return m
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

func start(t *testing.T, api *fakeAPI, pageSize int) Model {
	t.Helper()
	m := New(api, pageSize)
	m.today = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	m.resetForm()
	// 点滅カーソルのコマンドはタイマーを待つので、テストでは止めておく
	m.name.Cursor.SetMode(cursor.CursorStatic)
	m.dueDate.Cursor.SetMode(cursor.CursorStatic)
	assert.False(t, m.Loading())
	return send(t, m, m.Init()())
}

func todoNames(m Model) []string {
	var names []string
	for _, item := range m.Todos() {
		names = append(names, item.Name)
	}
	return names
}

func TestSortOrderNext(t *testing.T) {
	assert.Equal(t, SortAsc, SortNone.Next())
	assert.Equal(t, SortDesc, SortAsc.Next())
	assert.Equal(t, SortAsc, SortDesc.Next())
}

func TestLoadAndLoadMore(t *testing.T) {
	api := newFakeAPI(5)
	m := start(t, api, 2)

	assert.Equal(t, []string{"task 0", "task 1"}, todoNames(m))
	require.NotNil(t, m.NextKey())
	assert.False(t, m.Loading())

	// 「続きを読む」は追加してカーソルを置き換える
	m = press(t, m, "n")
	assert.Equal(t, []string{"task 0", "task 1", "task 2", "task 3"}, todoNames(m))
	assert.Equal(t, "2", api.calls[len(api.calls)-1][len("list:"):])

	m = press(t, m, "n")
	assert.Len(t, m.Todos(), 5)
	assert.Nil(t, m.NextKey())

	// 続きが無ければ何もしない
	calls := len(api.calls)
	m = press(t, m, "n")
	assert.Len(t, api.calls, calls)
}

func TestSortToggleRestartsFromFirstPage(t *testing.T) {
	api := newFakeAPI(4)
	m := start(t, api, 2)
	m = press(t, m, "n")
	require.Len(t, m.Todos(), 4)

	m = press(t, m, "s")
	assert.Equal(t, SortAsc, m.Sort())
	assert.Equal(t, []string{"task 3", "task 2"}, todoNames(m))
	assert.Equal(t, "due:asc:", api.calls[len(api.calls)-1])

	m = press(t, m, "s")
	assert.Equal(t, SortDesc, m.Sort())
	assert.Equal(t, []string{"task 0", "task 1"}, todoNames(m))

	m = press(t, m, "n")
	assert.Equal(t, "due:desc:2", api.calls[len(api.calls)-1])
	assert.Equal(t, []string{"task 0", "task 1", "task 2", "task 3"}, todoNames(m))
}

func TestToggleDone(t *testing.T) {
	api := newFakeAPI(2)
	m := start(t, api, 5)

	m = press(t, m, "j")
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, m.Todos()[0].Done)
	assert.True(t, m.Todos()[1].Done)

	// 失敗したら状態は変えずにアラート
	api.failWrite = true
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, m.Todos()[1].Done)
	assert.Equal(t, alertUpdateFailed, m.Alert())

	// アラートが出ている間は他のキーを受け付けない
	m = press(t, m, "d")
	assert.Empty(t, m.Alert())
	assert.Len(t, m.Todos(), 2)
}

func TestDelete(t *testing.T) {
	api := newFakeAPI(3)
	m := start(t, api, 5)

	api.failWrite = true
	m = press(t, m, "d")
	assert.Equal(t, alertDeleteFailed, m.Alert())
	assert.Len(t, m.Todos(), 3)
	m = press(t, m, "x")

	api.failWrite = false
	m = press(t, m, "d")
	assert.Equal(t, alertDeleted, m.Alert())
	assert.Equal(t, []string{"task 1", "task 2"}, todoNames(m))
}

func TestCreateTodoForm(t *testing.T) {
	api := newFakeAPI(1)
	m := start(t, api, 5)

	m = press(t, m, "a")
	require.Equal(t, modeForm, m.mode)
	m = press(t, m, "Buy milk")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, api.created, 1)
	assert.Equal(t, models.CreateTodoRequest{Name: "Buy milk", DueDate: "2024-05-01", Priority: models.PriorityHigh}, api.created[0])
	assert.Equal(t, alertCreated, m.Alert())
	assert.Equal(t, modeList, m.mode)
	// 成功時は一覧を最初から読み直す
	assert.Equal(t, []string{"task 0", "Buy milk"}, todoNames(m))
	assert.Empty(t, m.name.Value())
	assert.Equal(t, models.PriorityMedium, models.Priorities[m.priority])
}

func TestCreateTodoFailureKeepsFormAndList(t *testing.T) {
	api := newFakeAPI(2)
	m := start(t, api, 5)
	calls := len(api.calls)

	api.failWrite = true
	m = press(t, m, "a")
	m = press(t, m, "x")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, alertCreateFailed, m.Alert())
	assert.Equal(t, modeForm, m.mode)
	assert.Equal(t, "x", m.name.Value())
	assert.Len(t, m.Todos(), 2)
	assert.Len(t, api.calls, calls, "no reload after a failed create")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.Alert())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeList, m.mode)
}

func TestEditTodo(t *testing.T) {
	api := newFakeAPI(2)
	api.items[1].Done = true
	m := start(t, api, 5)

	m = press(t, m, "j")
	m = press(t, m, "e")
	require.Equal(t, modeForm, m.mode)
	require.NotNil(t, m.Editing())
	assert.Equal(t, "t1", m.Editing().TodoID)
	assert.Equal(t, "task 1", m.name.Value())
	assert.Equal(t, "2024-01-09", m.dueDate.Value())
	assert.Contains(t, m.View(), "Edit task")

	m.name.SetValue("renamed")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, alertEdited, m.Alert())
	assert.Equal(t, modeList, m.mode)
	assert.Nil(t, m.Editing())
	updated := m.Todos()[1]
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, "2024-01-09", updated.DueDate)
	// done は編集前の値を保つ
	assert.True(t, updated.Done)
	assert.Equal(t, "task 0", m.Todos()[0].Name)

	// 次の新規作成フォームは空から始まる
	m = press(t, m, "x")
	m = press(t, m, "a")
	assert.Nil(t, m.Editing())
	assert.Empty(t, m.name.Value())
}

func TestEditTodoFailureKeepsState(t *testing.T) {
	api := newFakeAPI(2)
	m := start(t, api, 5)

	m = press(t, m, "e")
	m.name.SetValue("renamed")
	api.failWrite = true
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, alertEditFailed, m.Alert())
	assert.Equal(t, modeForm, m.mode)
	assert.Equal(t, "renamed", m.name.Value())
	require.NotNil(t, m.Editing())
	assert.Equal(t, []string{"task 0", "task 1"}, todoNames(m))

	// キャンセルすると編集内容は捨てられる
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeList, m.mode)
	assert.Nil(t, m.Editing())
	assert.Empty(t, m.name.Value())
}

func TestUploadURL(t *testing.T) {
	api := newFakeAPI(2)
	m := start(t, api, 5)

	m = press(t, m, "j")
	m = press(t, m, "u")
	assert.Contains(t, m.Alert(), "https://signed.example/t1")
	assert.Contains(t, m.View(), "https://signed.example/t1")

	m = press(t, m, "x")
	api.failWrite = true
	m = press(t, m, "u")
	assert.Equal(t, alertUploadFailed, m.Alert())
}

func TestFetchFailureShowsAlert(t *testing.T) {
	api := newFakeAPI(2)
	api.failFetch = true
	m := start(t, api, 5)

	assert.Contains(t, m.Alert(), "network down")
	assert.Empty(t, m.Todos())
	assert.NotEmpty(t, m.View())
}

func TestView(t *testing.T) {
	api := newFakeAPI(2)
	m := start(t, api, 1)

	view := m.View()
	assert.Contains(t, view, "task 0")
	assert.Contains(t, view, "load more")

	m = press(t, m, "a")
	assert.Contains(t, m.View(), "New task")
}
