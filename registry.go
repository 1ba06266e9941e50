package pingwatch

import (
	"slices"
	"sync"
)

// registry maps target keys to their running tasks. One control
// operation holds the lock for all of its lookups and mutations, but
// never while waiting for a task to terminate.
type registry struct {
	tasks  map[string]*task
	closed bool // refuse inserts
	sync.Mutex
}

// insert stores t under key iff key is unknown. Callers hold the lock.
func (r *registry) insert(key string, t *task) bool {
	if _, found := r.tasks[key]; found {
		return false
	}
	r.tasks[key] = t
	return true
}

// remove claims the task stored under key. The caller becomes
// responsible for awaiting its termination. Callers hold the lock.
func (r *registry) remove(key string) (*task, bool) {
	t, found := r.tasks[key]
	if found {
		delete(r.tasks, key)
	}
	return t, found
}

// keysNotIn returns the sorted keys missing from allow. Callers hold the lock.
func (r *registry) keysNotIn(allow map[string]struct{}) []string {
	keys := make([]string, 0, len(r.tasks))
	for key := range r.tasks {
		if _, keep := allow[key]; !keep {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// snapshot returns all tasks ordered by key. Callers hold the lock.
func (r *registry) snapshot() []*task {
	tasks := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b *task) int {
		if a.key < b.key {
			return -1
		}
		if a.key > b.key {
			return 1
		}
		return 0
	})
	return tasks
}
