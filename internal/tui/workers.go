// Package tui provides the terminal user interface for valet.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/valet/pkg/models"
)

// StatusMsg is sent when a worker changes status.
type StatusMsg struct {
	TaskID string
	Status models.SubTaskStatus
}

// DoneMsg signals that the whole plan has finished and carries the final
// synthesized response.
type DoneMsg struct {
	Response string
}

// WorkerView renders live progress for a parallel plan, one line per
// subtask.
type WorkerView struct {
	order   []string
	descs   map[string]string
	status  map[string]models.SubTaskStatus
	spinner spinner.Model

	done     bool
	response string

	titleStyle   lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	pendingStyle lipgloss.Style
}

// NewWorkerView creates a view for the given plan.
func NewWorkerView(plan models.Plan) WorkerView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	v := WorkerView{
		order:   plan.IDs(),
		descs:   make(map[string]string, len(plan)),
		status:  make(map[string]models.SubTaskStatus, len(plan)),
		spinner: sp,

		titleStyle:   lipgloss.NewStyle().Bold(true),
		runningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
	for _, task := range plan {
		v.descs[task.ID] = task.Description
		v.status[task.ID] = models.SubTaskPending
	}
	return v
}

// Init implements tea.Model.
func (v WorkerView) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update implements tea.Model.
func (v WorkerView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		if _, ok := v.status[msg.TaskID]; !ok {
			// Plans discovered mid-flight grow the view a row at a time.
			v.order = append(v.order, msg.TaskID)
			v.descs[msg.TaskID] = msg.TaskID
		}
		v.status[msg.TaskID] = msg.Status
		return v, nil
	case DoneMsg:
		v.done = true
		v.response = msg.Response
		return v, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
		return v, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

// View implements tea.Model.
func (v WorkerView) View() string {
	var b strings.Builder
	b.WriteString(v.titleStyle.Render(fmt.Sprintf("Running %d subtasks", len(v.order))))
	b.WriteString("\n\n")

	for _, id := range v.order {
		var marker string
		switch v.status[id] {
		case models.SubTaskRunning:
			marker = v.runningStyle.Render(v.spinner.View())
		case models.SubTaskComplete:
			marker = v.doneStyle.Render("✓")
		case models.SubTaskFailed:
			marker = v.failedStyle.Render("✗")
		default:
			marker = v.pendingStyle.Render("○")
		}
		fmt.Fprintf(&b, "  %s [%s] %s\n", marker, id, v.descs[id])
	}

	if v.done {
		b.WriteString("\n")
		b.WriteString(v.response)
		b.WriteString("\n")
	}
	return b.String()
}

// Response returns the final response after the program exits.
func (v WorkerView) Response() string {
	return v.response
}
