package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/events"
	"sprintdesk/internal/repo"
)

type SprintInput struct {
	Name      string
	Goal      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
	MemberIDs []string
}

func (in *SprintInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = "planned"
	}
	if err := checkLength("name", in.Name, 2, 50); err != nil {
		return err
	}
	if err := checkLength("goal", in.Goal, 0, 255); err != nil {
		return err
	}
	if err := checkOneOf("status", in.Status, "planned", "active", "closed"); err != nil {
		return err
	}
	if in.StartDate.IsZero() {
		return invalid("start date is required")
	}
	if in.EndDate.IsZero() {
		return invalid("end date is required")
	}
	if in.EndDate.Before(in.StartDate) {
		return invalid("end date must not be before start date")
	}
	slices.Sort(in.MemberIDs)
	in.MemberIDs = slices.Compact(in.MemberIDs)
	if in.MemberIDs == nil {
		in.MemberIDs = []string{}
	}
	return nil
}

// ensureSprintTransition keeps closed sprints closed.
func ensureSprintTransition(oldStatus, newStatus string) error {
	if oldStatus == "closed" && newStatus != "closed" {
		return invalid("invalid sprint transition %s -> %s", oldStatus, newStatus)
	}
	return nil
}

func (e Engine) ListSprints(ctx context.Context, actorID, projectID string) ([]domain.Sprint, error) {
	if err := e.Auth.Require(ctx, e.DB, actorID, "sprint.read"); err != nil {
		return nil, err
	}
	if _, err := e.Repo.GetProject(ctx, e.DB, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListSprints(ctx, e.DB, projectID)
}

func (e Engine) CreateSprint(ctx context.Context, actorID, projectID string, in SprintInput) (domain.Sprint, error) {
	if err := in.normalize(); err != nil {
		return domain.Sprint{}, err
	}
	s := domain.Sprint{
		ID:        newID(),
		ProjectID: projectID,
		Name:      in.Name,
		Goal:      in.Goal,
		Status:    in.Status,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		MemberIDs: in.MemberIDs,
	}
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "sprint.manage"); err != nil {
			return err
		}
		if _, err := e.Repo.GetProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := e.checkMembers(ctx, tx, s.MemberIDs); err != nil {
			return err
		}
		if err := e.Repo.InsertSprint(ctx, tx, s, repo.Stamp(e.now())); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "sprint.created", projectID, "sprint", s.ID, actorID, events.EventPayload{"name": s.Name, "status": s.Status})
	})
	return s, err
}

func (e Engine) UpdateSprint(ctx context.Context, actorID, projectID, id string, in SprintInput) (domain.Sprint, error) {
	if err := in.normalize(); err != nil {
		return domain.Sprint{}, err
	}
	var s domain.Sprint
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "sprint.manage"); err != nil {
			return err
		}
		old, err := e.Repo.GetSprint(ctx, tx, projectID, id)
		if err != nil {
			return err
		}
		if err := ensureSprintTransition(old.Status, in.Status); err != nil {
			return err
		}
		if err := e.checkMembers(ctx, tx, in.MemberIDs); err != nil {
			return err
		}
		s = old
		s.Name, s.Goal, s.Status = in.Name, in.Goal, in.Status
		s.StartDate, s.EndDate, s.MemberIDs = in.StartDate, in.EndDate, in.MemberIDs
		if err := e.Repo.UpdateSprint(ctx, tx, s); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "sprint.updated", projectID, "sprint", id, actorID, events.EventPayload{"from": old.Status, "to": s.Status})
	})
	return s, err
}

func (e Engine) DeleteSprint(ctx context.Context, actorID, projectID, id string) error {
	return e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "sprint.manage"); err != nil {
			return err
		}
		if err := e.Repo.DeleteSprint(ctx, tx, projectID, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "sprint.deleted", projectID, "sprint", id, actorID, nil)
	})
}

func (e Engine) checkMembers(ctx context.Context, tx *sql.Tx, ids []string) error {
	for _, id := range ids {
		_, err := e.Repo.GetUser(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return invalid("member %s does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("load member %s: %w", id, err)
		}
	}
	return nil
}
