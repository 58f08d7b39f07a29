package store

import (
	"testing"

	"sprintdesk/internal/domain"
)

func TestCellSubscribe(t *testing.T) {
	var c Cell[int]
	var seen []int
	unsubscribe := c.Subscribe(func(v int) { seen = append(seen, v) })
	c.Set(1)
	c.Set(2)
	unsubscribe()
	c.Set(3)
	if c.Get() != 3 {
		t.Fatalf("get: %d", c.Get())
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("seen: %v", seen)
	}
}

func TestSubscriberMaySetOtherCells(t *testing.T) {
	s := New()
	s.Roles.Subscribe(func(roles []domain.Role) {
		if len(roles) == 0 {
			s.Members.Set(nil)
		}
	})
	s.Members.Set([]domain.CompanyUser{{ID: "u1"}})
	s.Roles.Set(nil)
	if s.Members.Get() != nil {
		t.Fatalf("subscriber should run without holding the lock")
	}
}

func TestStoresAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.Projects.Set([]domain.Project{{ID: "p1"}})
	if len(b.Projects.Get()) != 0 {
		t.Fatalf("stores must not share state")
	}
}

func TestNameLookups(t *testing.T) {
	s := New()
	s.Members.Set([]domain.CompanyUser{{ID: "u1", FullName: "Ana Lima"}, {ID: "u2", Email: "bo@example.com"}})
	s.Roles.Set([]domain.Role{{ID: "r1", Name: "Admin"}})
	s.Sprints.Set([]domain.Sprint{{ID: "s1", Name: "Sprint 1"}})
	if s.MemberName("u1") != "Ana Lima" || s.MemberName("u2") != "bo@example.com" || s.MemberName("u3") != "u3" {
		t.Fatalf("member names")
	}
	if s.RoleName("r1") != "Admin" || s.SprintName("s1") != "Sprint 1" {
		t.Fatalf("role or sprint names")
	}
	s.Reset()
	if s.RoleName("r1") != "r1" || s.User.Get() != nil {
		t.Fatalf("reset should clear everything")
	}
}
