package board

import (
	"slices"
	"time"

	"sprintdesk/internal/domain"
)

// Summary aggregates a set of tasks for the reports view.
type Summary struct {
	Total      int
	ByStatus   map[string]int
	ByPriority map[int]int
	// ByAssignee keys unassigned tasks under "".
	ByAssignee map[string]int
	Overdue    int
}

// Summarize counts tasks. A task is overdue when it has a due date before
// now and is not done.
func Summarize(tasks []domain.Task, now time.Time) Summary {
	s := Summary{
		Total:      len(tasks),
		ByStatus:   map[string]int{},
		ByPriority: map[int]int{},
		ByAssignee: map[string]int{},
	}
	for _, t := range tasks {
		s.ByStatus[t.Status]++
		p := 0
		if t.Priority != nil {
			p = *t.Priority
		}
		s.ByPriority[p]++
		s.ByAssignee[deref(t.AssigneeID)]++
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != domain.TaskDone {
			s.Overdue++
		}
	}
	return s
}

// StatusCount is one row of a status breakdown.
type StatusCount struct {
	Status string
	Count  int
}

// StatusRows lists known statuses in board order, then unknown ones sorted.
func (s Summary) StatusRows() []StatusCount {
	rows := make([]StatusCount, 0, len(s.ByStatus))
	for _, st := range domain.TaskStatuses {
		rows = append(rows, StatusCount{Status: st, Count: s.ByStatus[st]})
	}
	var extra []string
	for st := range s.ByStatus {
		if !slices.Contains(domain.TaskStatuses, st) {
			extra = append(extra, st)
		}
	}
	slices.Sort(extra)
	for _, st := range extra {
		rows = append(rows, StatusCount{Status: st, Count: s.ByStatus[st]})
	}
	return rows
}

// Completion is the done share in [0, 1].
func (s Summary) Completion() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByStatus[domain.TaskDone]) / float64(s.Total)
}
