package workflow

import "github.com/taskboard/taskboard/client/internal/types"

// Column is the projection of a task list onto one status.
type Column struct {
	Status types.TaskStatus
	Tasks  []types.Task
}

// Count is the number of tasks in the column.
func (c Column) Count() int { return len(c.Tasks) }

// Board is the column projection of a task list. It is recomputed from the
// list on every call to Project and never cached.
type Board struct {
	Columns []Column
	// Unplaced holds tasks whose status is not a board column.
	Unplaced []types.Task
}

// Project partitions tasks into columns in Order, preserving input order
// within each column.
func Project(tasks []types.Task) Board {
	b := Board{Columns: make([]Column, len(Order))}
	idx := make(map[types.TaskStatus]int, len(Order))
	for i, s := range Order {
		b.Columns[i] = Column{Status: s}
		idx[s] = i
	}
	for _, t := range tasks {
		i, ok := idx[t.Status]
		if !ok {
			b.Unplaced = append(b.Unplaced, t)
			continue
		}
		b.Columns[i].Tasks = append(b.Columns[i].Tasks, t)
	}
	return b
}

// Column returns the column for status s.
func (b Board) Column(s types.TaskStatus) Column {
	for _, c := range b.Columns {
		if c.Status == s {
			return c
		}
	}
	return Column{Status: s}
}

// Count is the size of the column for status s.
func (b Board) Count(s types.TaskStatus) int { return b.Column(s).Count() }

// Total is the number of tasks placed in any column.
func (b Board) Total() int {
	n := 0
	for _, c := range b.Columns {
		n += c.Count()
	}
	return n
}

// Find returns the placed task with the given id.
func (b Board) Find(id int64) (types.Task, bool) {
	for _, c := range b.Columns {
		for _, t := range c.Tasks {
			if t.TaskID == id {
				return t, true
			}
		}
	}
	return types.Task{}, false
}
