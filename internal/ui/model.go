// Package ui はTodo一覧のターミナルUI (Bubble Tea) です。
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"serverless-todo/backend/internal/client"
	"serverless-todo/backend/internal/models"
)

// アラートの文言
const (
	alertCreated        = "Create todo successfully!"
	alertCreateFailed   = "Todo creation failed, please check your input data"
	alertDeleted        = "Delete todo successfully!"
	alertDeleteFailed   = "Todo deletion failed"
	alertUpdateFailed   = "Update Todo done is failed"
	alertEdited         = "Update todo successfully!"
	alertEditFailed     = "Todo update failed, please check your input data"
	alertUploadFailed   = "Failed to get upload URL"
	alertUploadURLFmt   = "Upload the attachment with PUT to:\n%s"
	alertFetchFailedFmt = "Failed to fetch todos: %v"
)

// requestTimeout は1回のAPI呼び出しの上限です。
const requestTimeout = 15 * time.Second

// TodosAPI はUIが使うAPI操作です。*client.Client が満たします。
type TodosAPI interface {
	GetTodos(ctx context.Context, page client.Page) (*models.TodoListResponse, error)
	GetTodosByDueDate(ctx context.Context, sortBy string, page client.Page) (*models.TodoListResponse, error)
	CreateTodo(ctx context.Context, req models.CreateTodoRequest) (*models.TodoItem, error)
	PatchTodo(ctx context.Context, todoID string, patch models.TodoUpdate) (*models.TodoItem, error)
	DeleteTodo(ctx context.Context, todoID string) error
	GetUploadURL(ctx context.Context, todoID string) (string, error)
}

// SortOrder は期限による並び順です。SortNone は作成順です。
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAsc
	SortDesc
)

// Next はソート切り替え後の順序です (none/desc → asc, asc → desc)。
func (s SortOrder) Next() SortOrder {
	if s == SortAsc {
		return SortDesc
	}
	return SortAsc
}

func (s SortOrder) String() string {
	switch s {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return "none"
	}
}

type mode int

const (
	modeList mode = iota
	modeForm
)

// フォームのフィールド
const (
	fieldName = iota
	fieldPriority
	fieldDueDate
	fieldCount
)

type (
	todosLoadedMsg struct {
		res    *models.TodoListResponse
		append bool
		err    error
	}
	todoCreatedMsg struct {
		item *models.TodoItem
		err  error
	}
	todoPatchedMsg struct {
		item *models.TodoItem
		err  error
	}
	todoDeletedMsg struct {
		todoID string
		err    error
	}
	todoEditedMsg struct {
		item *models.TodoItem
		err  error
	}
	uploadURLMsg struct {
		url string
		err error
	}
)

// Model はTodo一覧画面の状態です。
type Model struct {
	api      TodosAPI
	pageSize int
	today    func() time.Time

	todos   []models.TodoItem
	nextKey *string
	sort    SortOrder
	loading bool
	cursor  int
	alert   string

	mode     mode
	focus    int
	name     textinput.Model
	dueDate  textinput.Model
	priority int // models.Priorities のインデックス
	editing  *models.TodoItem // nil なら新規作成フォーム

	help help.Model
}

// New は新しいModelを作成します。pageSize が0以下なら5件です。
func New(api TodosAPI, pageSize int) Model {
	if pageSize <= 0 {
		pageSize = 5
	}
	m := Model{
		api:      api,
		pageSize: pageSize,
		today:    time.Now,
		help:     help.New(),
	}
	m.name = textinput.New()
	m.name.Prompt = "Name     "
	m.name.Placeholder = "To change the world..."
	m.name.CharLimit = 200
	m.dueDate = textinput.New()
	m.dueDate.Prompt = "Due date "
	m.dueDate.Placeholder = models.DueDateLayout
	m.dueDate.CharLimit = len(models.DueDateLayout)
	m.resetForm()
	return m
}

// Init は最初のページを読み込みます。
func (m Model) Init() tea.Cmd {
	return m.fetch(nil, false)
}

// Todos は表示中のTodoです。
func (m Model) Todos() []models.TodoItem { return m.todos }

// NextKey は続きを読むためのカーソルです。nil なら続きはありません。
func (m Model) NextKey() *string { return m.nextKey }

// Sort は現在の並び順です。
func (m Model) Sort() SortOrder { return m.sort }

// Loading は一覧の読み込み中かどうかです。
func (m Model) Loading() bool { return m.loading }

// Alert は表示中のアラートです。
func (m Model) Alert() string { return m.alert }

func (m *Model) resetForm() {
	m.name.SetValue("")
	m.dueDate.SetValue(m.today().Format(models.DueDateLayout))
	m.priority = indexOfPriority(models.PriorityMedium)
	m.focus = fieldName
	m.editing = nil
}

// startEdit は選択中のTodoの値でフォームを埋めます。
func (m *Model) startEdit(item models.TodoItem) {
	m.name.SetValue(item.Name)
	m.dueDate.SetValue(item.DueDate)
	m.priority = indexOfPriority(item.Priority)
	m.focus = fieldName
	m.editing = &item
}

// Editing は編集中のTodoです。新規作成中や一覧表示中は nil です。
func (m Model) Editing() *models.TodoItem { return m.editing }

// Update はメッセージを処理します。
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case todosLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.alert = fmt.Sprintf(alertFetchFailedFmt, msg.err)
			return m, nil
		}
		if msg.append {
			m.todos = append(m.todos, msg.res.Items...)
		} else {
			m.todos = msg.res.Items
			m.cursor = 0
		}
		m.nextKey = msg.res.NextKey
		return m, nil

	case todoCreatedMsg:
		if msg.err != nil {
			// 入力内容と一覧はそのまま残す
			m.alert = alertCreateFailed
			return m, nil
		}
		m.alert = alertCreated
		m.resetForm()
		m.blurForm()
		m.mode = modeList
		return m.reload()

	case todoPatchedMsg:
		if msg.err != nil {
			m.alert = alertUpdateFailed
			return m, nil
		}
		m.replace(*msg.item)
		return m, nil

	case todoEditedMsg:
		if msg.err != nil {
			// 入力内容と一覧はそのまま残す
			m.alert = alertEditFailed
			return m, nil
		}
		m.replace(*msg.item)
		m.alert = alertEdited
		m.resetForm()
		m.blurForm()
		m.mode = modeList
		return m, nil

	case uploadURLMsg:
		if msg.err != nil {
			m.alert = alertUploadFailed
			return m, nil
		}
		m.alert = fmt.Sprintf(alertUploadURLFmt, msg.url)
		return m, nil

	case todoDeletedMsg:
		if msg.err != nil {
			m.alert = alertDeleteFailed
			return m, nil
		}
		for i := range m.todos {
			if m.todos[i].TodoID == msg.todoID {
				m.todos = append(m.todos[:i:i], m.todos[i+1:]...)
				break
			}
		}
		if m.cursor >= len(m.todos) && m.cursor > 0 {
			m.cursor = len(m.todos) - 1
		}
		m.alert = alertDeleted
		return m, nil

	case tea.KeyMsg:
		// アラートは何かキーを押すまで他の操作をブロックする
		if m.alert != "" {
			m.alert = ""
			return m, nil
		}
		if m.mode == modeForm {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.todos)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.More):
		if m.nextKey == nil || m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.fetch(m.nextKey, true)
	case key.Matches(msg, keys.Sort):
		m.sort = m.sort.Next()
		return m.reload()
	case key.Matches(msg, keys.Reload):
		return m.reload()
	case key.Matches(msg, keys.Toggle):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggleDone(item)
	case key.Matches(msg, keys.Delete):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.deleteTodo(item.TodoID)
	case key.Matches(msg, keys.Upload):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.uploadURL(item.TodoID)
	case key.Matches(msg, keys.Edit):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.startEdit(item)
		m.mode = modeForm
		return m, m.name.Focus()
	case key.Matches(msg, keys.Add):
		m.mode = modeForm
		m.focus = fieldName
		return m, m.name.Focus()
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		if m.editing != nil {
			m.resetForm()
		}
		m.blurForm()
		m.mode = modeList
		return m, nil
	case key.Matches(msg, keys.Submit):
		name := strings.TrimSpace(m.name.Value())
		dueDate := strings.TrimSpace(m.dueDate.Value())
		priority := models.Priorities[m.priority]
		if m.editing != nil {
			return m, m.editTodo(m.editing.TodoID, models.TodoUpdate{
				Name:     name,
				DueDate:  dueDate,
				Done:     m.editing.Done,
				Priority: priority,
			})
		}
		return m, m.createTodo(models.CreateTodoRequest{
			Name:     name,
			DueDate:  dueDate,
			Priority: priority,
		})
	case key.Matches(msg, keys.Next):
		m.focus = (m.focus + 1) % fieldCount
		return m, m.focusField()
	case m.focus == fieldPriority && key.Matches(msg, keys.Left):
		m.priority = (m.priority + len(models.Priorities) - 1) % len(models.Priorities)
		return m, nil
	case m.focus == fieldPriority && key.Matches(msg, keys.Right):
		m.priority = (m.priority + 1) % len(models.Priorities)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldName:
		m.name, cmd = m.name.Update(msg)
	case fieldDueDate:
		m.dueDate, cmd = m.dueDate.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusField() tea.Cmd {
	m.name.Blur()
	m.dueDate.Blur()
	switch m.focus {
	case fieldName:
		return m.name.Focus()
	case fieldDueDate:
		return m.dueDate.Focus()
	}
	return nil
}

func (m *Model) blurForm() {
	m.name.Blur()
	m.dueDate.Blur()
}

// reload は蓄積したTodoを捨てて、現在の並び順で最初のページから読み直します。
func (m Model) reload() (tea.Model, tea.Cmd) {
	m.todos = nil
	m.nextKey = nil
	m.cursor = 0
	m.loading = true
	return m, m.fetch(nil, false)
}

// replace は同じ todoId のTodoを置き換えます。
func (m *Model) replace(item models.TodoItem) {
	for i := range m.todos {
		if m.todos[i].TodoID == item.TodoID {
			m.todos[i] = item
		}
	}
}

func (m Model) selected() (models.TodoItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.todos) {
		return models.TodoItem{}, false
	}
	return m.todos[m.cursor], true
}

func (m Model) fetch(nextKey *string, appendItems bool) tea.Cmd {
	api, sortOrder := m.api, m.sort
	page := client.Page{Limit: m.pageSize}
	if nextKey != nil {
		page.NextKey = *nextKey
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			res *models.TodoListResponse
			err error
		)
		if sortOrder == SortNone {
			res, err = api.GetTodos(ctx, page)
		} else {
			res, err = api.GetTodosByDueDate(ctx, sortOrder.String(), page)
		}
		return todosLoadedMsg{res: res, append: appendItems, err: err}
	}
}

func (m Model) createTodo(req models.CreateTodoRequest) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		item, err := api.CreateTodo(ctx, req)
		return todoCreatedMsg{item: item, err: err}
	}
}

func (m Model) toggleDone(item models.TodoItem) tea.Cmd {
	api := m.api
	patch := models.TodoUpdate{
		Name:     item.Name,
		DueDate:  item.DueDate,
		Done:     !item.Done,
		Priority: item.Priority,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updated, err := api.PatchTodo(ctx, item.TodoID, patch)
		return todoPatchedMsg{item: updated, err: err}
	}
}

func (m Model) editTodo(todoID string, patch models.TodoUpdate) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updated, err := api.PatchTodo(ctx, todoID, patch)
		return todoEditedMsg{item: updated, err: err}
	}
}

func (m Model) uploadURL(todoID string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		uploadURL, err := api.GetUploadURL(ctx, todoID)
		return uploadURLMsg{url: uploadURL, err: err}
	}
}

func (m Model) deleteTodo(todoID string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return todoDeletedMsg{todoID: todoID, err: api.DeleteTodo(ctx, todoID)}
	}
}

func indexOfPriority(p models.Priority) int {
	for i, v := range models.Priorities {
		if v == p {
			return i
		}
	}
	return 0
}
