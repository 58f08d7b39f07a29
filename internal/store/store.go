// Package store holds the last fetched server state shared between views.
// A Store is an ordinary value: create one per process or per test.
package store

import (
	"slices"
	"sync"

	"sprintdesk/internal/domain"
)

// Cell is a single observable value.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
}

func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and calls every subscriber with it outside the lock.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := make([]func(T), 0, len(c.subs))
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, c.subs[id])
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and returns a func that removes it.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = map[int]func(T){}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Mirror returns a setter suitable for listing.Options.Mirror.
func (c *Cell[T]) Mirror() func(T) {
	return c.Set
}

type Store struct {
	User        Cell[*domain.CompanyUser]
	Projects    Cell[[]domain.Project]
	Members     Cell[[]domain.CompanyUser]
	Roles       Cell[[]domain.Role]
	Sprints     Cell[[]domain.Sprint]
	Tasks       Cell[[]domain.Task]
	Invitations Cell[[]domain.Invitation]
}

func New() *Store {
	return &Store{}
}

// Reset clears everything, as on sign-out.
func (s *Store) Reset() {
	s.User.Set(nil)
	s.Projects.Set(nil)
	s.Members.Set(nil)
	s.Roles.Set(nil)
	s.Sprints.Set(nil)
	s.Tasks.Set(nil)
	s.Invitations.Set(nil)
}

// MemberName resolves a member id to a display name, falling back to the id.
func (s *Store) MemberName(id string) string {
	for _, m := range s.Members.Get() {
		if m.ID == id {
			if m.FullName != "" {
				return m.FullName
			}
			return m.Email
		}
	}
	return id
}

// RoleName resolves a role id to its name, falling back to the id.
func (s *Store) RoleName(id string) string {
	for _, r := range s.Roles.Get() {
		if r.ID == id {
			return r.Name
		}
	}
	return id
}

// SprintName resolves a sprint id to its name, falling back to the id.
func (s *Store) SprintName(id string) string {
	for _, sp := range s.Sprints.Get() {
		if sp.ID == id {
			return sp.Name
		}
	}
	return id
}
