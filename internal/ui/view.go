package ui

import (
	"fmt"
	"strings"

	"serverless-todo/backend/internal/models"
)

// View は画面を描画します。
func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("TODOs")
	if m.sort != SortNone {
		header += "  " + accentStyle.Render("due date "+m.sort.String())
	}
	b.WriteString(header + "\n\n")

	if m.mode == modeForm {
		b.WriteString(m.formView() + "\n\n")
	}

	if len(m.todos) == 0 && !m.loading {
		b.WriteString(mutedStyle.Render("No todos yet. Press a to add one.") + "\n")
	}
	for i, item := range m.todos {
		b.WriteString(m.itemLine(i, item) + "\n")
	}

	switch {
	case m.loading:
		b.WriteString("\n" + mutedStyle.Render("Loading TODOs...") + "\n")
	case m.nextKey != nil:
		b.WriteString("\n" + mutedStyle.Render("n: load more") + "\n")
	}

	if m.alert != "" {
		style := successStyle
		if m.alert == alertCreateFailed || m.alert == alertDeleteFailed || m.alert == alertUpdateFailed || m.alert == alertEditFailed || strings.HasPrefix(m.alert, "Failed") {
			style = errorStyle
		}
		b.WriteString("\n" + alertStyle.Render(style.Render(m.alert)+"\n"+helpStyle.Render("press any key")) + "\n")
	}

	if m.mode == modeForm {
		b.WriteString("\n" + m.help.ShortHelpView(keys.FormHelp))
	} else {
		b.WriteString("\n" + m.help.View(keys))
	}
	return panelStyle.Render(b.String())
}

func (m Model) itemLine(i int, item models.TodoItem) string {
	box := mutedStyle.Render(boxUnchecked)
	name := item.Name
	if item.Done {
		box = successStyle.Render(boxChecked)
		name = doneStyle.Render(name)
	}
	prefix := "  "
	if i == m.cursor && m.mode == modeList {
		prefix = selectedStyle.Render("> ")
	}
	line := fmt.Sprintf("%s%s %s  %s  %s", prefix, box, name, renderPriority(item.Priority), mutedStyle.Render(item.DueDate))
	if item.AttachmentURL != nil {
		line += "  " + accentStyle.Render("📎")
	}
	return line
}

func (m Model) formView() string {
	priorities := make([]string, 0, len(models.Priorities))
	for i, p := range models.Priorities {
		label := string(p)
		if i == m.priority {
			label = selectedStyle.Render(label)
		}
		priorities = append(priorities, label)
	}
	priorityLine := "Priority " + strings.Join(priorities, " ")
	if m.focus == fieldPriority {
		priorityLine = accentStyle.Render("> ") + priorityLine
	} else {
		priorityLine = "  " + priorityLine
	}

	title := "New task"
	if m.editing != nil {
		title = "Edit task"
	}
	lines := []string{
		titleStyle.Render(title),
		focusPrefix(m.focus == fieldName) + m.name.View(),
		priorityLine,
		focusPrefix(m.focus == fieldDueDate) + m.dueDate.View(),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func focusPrefix(focused bool) string {
	if focused {
		return accentStyle.Render("> ")
	}
	return "  "
}
