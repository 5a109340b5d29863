package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/valet/pkg/models"
)

func testPlan() models.Plan {
	return models.Plan{
		{ID: "t1", Description: "fetch BTC price", Status: models.SubTaskPending},
		{ID: "t2", Description: "fetch ETH price", Status: models.SubTaskPending},
	}
}

func TestWorkerViewStatusTransitions(t *testing.T) {
	var m tea.Model = NewWorkerView(testPlan())

	m, _ = m.Update(StatusMsg{TaskID: "t1", Status: models.SubTaskRunning})
	m, _ = m.Update(StatusMsg{TaskID: "t2", Status: models.SubTaskFailed})

	view := m.View()
	if !strings.Contains(view, "fetch BTC price") || !strings.Contains(view, "fetch ETH price") {
		t.Errorf("view missing task descriptions:\n%s", view)
	}
	if !strings.Contains(view, "✗") {
		t.Errorf("failed task has no failure marker:\n%s", view)
	}
}

func TestWorkerViewGrowsForUnknownTask(t *testing.T) {
	var m tea.Model = NewWorkerView(testPlan())
	m, _ = m.Update(StatusMsg{TaskID: "t3", Status: models.SubTaskComplete})
	view := m.View()
	if !strings.Contains(view, "t3") || !strings.Contains(view, "✓") {
		t.Errorf("view did not grow a row for a new task:\n%s", view)
	}
}

func TestWorkerViewDoneQuitsWithResponse(t *testing.T) {
	var m tea.Model = NewWorkerView(testPlan())

	m, cmd := m.Update(DoneMsg{Response: "both prices fetched"})
	if cmd == nil {
		t.Fatal("DoneMsg did not produce a command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("command = %v, want quit", msg)
	}

	wv := m.(WorkerView)
	if wv.Response() != "both prices fetched" {
		t.Errorf("response = %q", wv.Response())
	}
	if !strings.Contains(m.View(), "both prices fetched") {
		t.Error("final view missing the response")
	}
}
