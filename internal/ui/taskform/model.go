package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/theme"
)

const dateLayout = "2006-01-02"

// TaskCreatedMsg is dispatched when a new task is submitted via the form.
type TaskCreatedMsg struct {
	Task model.Task
}

// TaskUpdatedMsg is dispatched when an existing task is submitted via the form.
type TaskUpdatedMsg struct {
	Task model.Task
}

// TaskFormCancelMsg is dispatched when the user cancels the form.
type TaskFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	note     string
	priority model.Priority
	reason   string
	dueDate  string
	status   model.Status
	types    string
	category string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	original model.Task
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityNormal, status: model.StatusPending},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for creating a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	*m.fb = formBindings{priority: model.PriorityNormal, status: model.StatusPending}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task. Fields the
// form does not show are carried over unchanged.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.original = task
	*m.fb = formBindings{
		title:    task.Title,
		note:     task.Note,
		priority: task.Priority,
		reason:   task.Reason,
		status:   task.Status,
		types:    strings.Join(task.PriorityTags.Type, ", "),
		category: strings.Join(task.PriorityTags.Category, ", "),
	}
	if m.fb.priority == "" {
		m.fb.priority = model.PriorityNormal
	}
	if m.fb.status == "" {
		m.fb.status = model.StatusPending
	}
	if task.HasDueDate() {
		m.fb.dueDate = task.DueDate.UTC().Format(dateLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return TaskFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Note").
			Placeholder("Optional details...").
			Value(&m.fb.note),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(
				huh.NewOption("High", model.PriorityHigh),
				huh.NewOption("Normal", model.PriorityNormal),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Reason").
			Placeholder("Why does this matter? (required for high)").
			Value(&m.fb.reason).
			Validate(m.validateReason),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
		huh.NewInput().
			Title("Type").
			Placeholder("Comma separated, e.g. Project Delivery Work").
			Value(&m.fb.types),
		huh.NewInput().
			Title("Category").
			Placeholder("Comma separated (optional)").
			Value(&m.fb.category),
	}

	if m.editMode {
		fields = append(fields,
			huh.NewSelect[model.Status]().
				Title("Status").
				Options(
					huh.NewOption("Pending", model.StatusPending),
					huh.NewOption("In progress", model.StatusInProgress),
					huh.NewOption("Deferred", model.StatusDeferred),
					huh.NewOption("Completed", model.StatusCompleted),
					huh.NewOption("Cancelled", model.StatusCancelled),
				).
				Value(&m.fb.status),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// Task builds the task described by the current form values.
func (m Model) Task() model.Task {
	task := m.original
	task.Title = strings.TrimSpace(m.fb.title)
	task.Note = m.fb.note
	task.Priority = m.fb.priority
	task.Reason = strings.TrimSpace(m.fb.reason)
	task.Status = m.fb.status
	task.PriorityTags.Type = editedLabels(m.fb.types, m.original.PriorityTags.Type)
	task.PriorityTags.Category = editedLabels(m.fb.category, m.original.PriorityTags.Category)
	task.DueDate = m.editedDueDate()
	return task
}

// editedDueDate parses the date field. The form only shows the day, so an
// unchanged day keeps the stored time of day.
func (m Model) editedDueDate() *time.Time {
	d := strings.TrimSpace(m.fb.dueDate)
	if d == "" {
		return nil
	}
	if orig := m.original.DueDate; m.original.HasDueDate() && orig.UTC().Format(dateLayout) == d {
		return orig
	}
	t, err := time.Parse(dateLayout, d)
	if err != nil {
		return nil
	}
	return &t
}

// editedLabels keeps the stored labels when the field text is unchanged.
func editedLabels(text string, orig []string) []string {
	if strings.Join(orig, ", ") == text {
		return orig
	}
	return splitLabels(text)
}

func (m Model) handleSubmit() tea.Cmd {
	task := m.Task()
	if m.editMode {
		return func() tea.Msg { return TaskUpdatedMsg{Task: task} }
	}
	return func() tea.Msg { return TaskCreatedMsg{Task: task} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m Model) validateReason(s string) error {
	if m.fb.priority == model.PriorityHigh && strings.TrimSpace(s) == "" {
		return fmt.Errorf("high priority needs a reason")
	}
	return nil
}

// splitLabels turns "a, b,,c" into [a b c]; blank input yields nil.
func splitLabels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	_, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
