package agenda

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/workspace"
)

// TaskEntry is a task annotated for the task queue. The stored Priority is
// never changed; EffectivePriority is what display and sorting use.
type TaskEntry struct {
	workspace.Task
	EffectivePriority workspace.Priority
	Overdue           bool
	// Visible reports whether the task belongs in the default (not full list) view.
	Visible bool
	// Expired tasks are completed and past their due date; no view shows them.
	Expired bool
}

// AnnotateTask derives the display state of task on the given day.
func AnnotateTask(task workspace.Task, today utils.Date) TaskEntry {
	entry := TaskEntry{
		Task:              task,
		EffectivePriority: task.Priority,
		Visible:           true,
	}
	if entry.EffectivePriority == "" {
		entry.EffectivePriority = workspace.PriorityNormal
	}

	if task.DueDate != nil {
		due := *task.DueDate
		if !task.Completed && !due.After(today) {
			entry.EffectivePriority = workspace.PriorityUrgent
		}
		if !task.Completed && due.Before(today) {
			entry.Overdue = true
		}
		if task.Completed && today.After(due) {
			entry.Expired = true
			entry.Visible = false
		}
	}
	if task.StartDate != nil && task.StartDate.After(today) {
		entry.Visible = false
	}
	return entry
}

// TaskQueue annotates, filters and sorts tasks for display at now. The full
// list still omits expired tasks but shows tasks that have not started yet.
func TaskQueue(tasks []workspace.Task, now time.Time, fullList bool) []TaskEntry {
	today := utils.DateOf(now)
	entries := make([]TaskEntry, 0, len(tasks))
	for _, task := range tasks {
		entry := AnnotateTask(task, today)
		if entry.Expired {
			continue
		}
		if !fullList && !entry.Visible {
			continue
		}
		entries = append(entries, entry)
	}
	SortTasks(entries)
	return entries
}

// CompareTasks orders by (incomplete first, effective priority, due date with
// undated tasks last).
func CompareTasks(a, b TaskEntry) int {
	return cmp.Or(
		cmp.Compare(boolRank(a.Completed), boolRank(b.Completed)),
		cmp.Compare(a.EffectivePriority.Rank(), b.EffectivePriority.Rank()),
		cmp.Compare(dueKey(a.DueDate), dueKey(b.DueDate)),
	)
}

// SortTasks sorts in place; ties keep their input order.
func SortTasks(entries []TaskEntry) {
	slices.SortStableFunc(entries, CompareTasks)
}

func dueKey(due *utils.Date) int {
	if due == nil {
		return math.MaxInt
	}
	return due.Year*10000 + int(due.Month)*100 + due.Day
}
