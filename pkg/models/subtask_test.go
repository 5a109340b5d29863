package models

import "testing"

func TestSubTaskStatusValid(t *testing.T) {
	valid := []SubTaskStatus{SubTaskPending, SubTaskRunning, SubTaskComplete, SubTaskFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}

	if SubTaskStatus("queued").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestSubTaskStatusTerminal(t *testing.T) {
	cases := []struct {
		status   SubTaskStatus
		terminal bool
	}{
		{SubTaskPending, false},
		{SubTaskRunning, false},
		{SubTaskComplete, true},
		{SubTaskFailed, true},
	}

	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Errorf("Terminal(%q) = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}

func TestPlanIDs(t *testing.T) {
	plan := Plan{
		{ID: "task_1", Description: "fetch BTC price"},
		{ID: "task_2", Description: "fetch ETH price"},
	}

	ids := plan.IDs()
	if len(ids) != 2 || ids[0] != "task_1" || ids[1] != "task_2" {
		t.Errorf("IDs() = %v, want [task_1 task_2]", ids)
	}
}

func TestPlanParallel(t *testing.T) {
	if (Plan{}).Parallel() {
		t.Error("empty plan should not be parallel")
	}
	if (Plan{{ID: "a"}}).Parallel() {
		t.Error("single-task plan should not be parallel")
	}
	if !(Plan{{ID: "a"}, {ID: "b"}}).Parallel() {
		t.Error("two-task plan should be parallel")
	}
}
