package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sprintdesk/internal/config"
	"sprintdesk/internal/domain"
	"sprintdesk/internal/engine/auth"
	"sprintdesk/internal/events"
	"sprintdesk/internal/repo"
)

// Engine is the dev server's service layer: validation, RBAC and the
// mutation log around the typed queries of repo.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Events: events.Writer{DB: db},
		Auth:   auth.Service{Repo: r},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ValidationError is a rejected input; its message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

func (e Engine) invitationTTL() time.Duration {
	if e.Config != nil && e.Config.Dev.InvitationTTL > 0 {
		return e.Config.Dev.InvitationTTL
	}
	return 7 * 24 * time.Hour
}

func newID() string {
	return uuid.NewString()
}

// write runs fn in a transaction and commits when it returns nil.
func (e Engine) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Bootstrap seeds permissions and built-in roles.
func (e Engine) Bootstrap(ctx context.Context) error {
	return e.write(ctx, func(tx *sql.Tx) error {
		return e.Auth.Bootstrap(ctx, tx, repo.Stamp(e.now()))
	})
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", invalid("email %q is invalid", raw)
	}
	return strings.ToLower(addr.Address), nil
}

// displayName turns "jane.doe@x" into "Jane Doe".
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return cases.Title(language.Und).String(strings.Join(strings.Fields(local), " "))
}

// Login signs in by email, creating the user on first sight. The first
// user becomes admin; a pending invitation grants its role; anyone else
// joins as viewer.
func (e Engine) Login(ctx context.Context, rawEmail string) (domain.CompanyUser, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.CompanyUser{}, err
	}
	var user domain.CompanyUser
	err = e.write(ctx, func(tx *sql.Tx) error {
		existing, err := e.Repo.GetUserByEmail(ctx, tx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		now := e.now()
		user = domain.CompanyUser{ID: newID(), Email: email, FullName: displayName(email), RoleID: auth.RoleViewer, JoinedAt: now}
		count, err := e.Repo.CountUsers(ctx, tx)
		if err != nil {
			return err
		}
		inv, invErr := e.Repo.PendingInvitation(ctx, tx, email, repo.Stamp(now))
		switch {
		case count == 0:
			user.RoleID = auth.RoleAdmin
		case invErr == nil:
			user.RoleID = inv.RoleID
		case !errors.Is(invErr, repo.ErrNotFound):
			return invErr
		}
		if err := e.Repo.InsertUser(ctx, tx, user); err != nil {
			return err
		}
		if invErr == nil {
			if err := e.Repo.SetInvitationStatus(ctx, tx, inv.ID, "accepted"); err != nil {
				return err
			}
			if err := e.Events.Append(ctx, tx, "invitation.accepted", "", "invitation", inv.ID, user.ID, nil); err != nil {
				return err
			}
		}
		return e.Events.Append(ctx, tx, "member.joined", "", "member", user.ID, user.ID, events.EventPayload{"role_id": user.RoleID})
	})
	return user, err
}

func (e Engine) Me(ctx context.Context, userID string) (domain.CompanyUser, error) {
	return e.Repo.GetUser(ctx, e.DB, userID)
}

func (e Engine) ListMembers(ctx context.Context, actorID string) ([]domain.CompanyUser, error) {
	if _, err := e.Repo.GetUser(ctx, e.DB, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListUsers(ctx, e.DB)
}

// Activity returns a project's newest mutation events.
func (e Engine) Activity(ctx context.Context, actorID, projectID string, limit int) ([]domain.Activity, error) {
	if err := e.Auth.Require(ctx, e.DB, actorID, "report.read"); err != nil {
		return nil, err
	}
	if _, err := e.Repo.GetProject(ctx, e.DB, projectID); err != nil {
		return nil, err
	}
	return e.Events.Recent(ctx, projectID, limit)
}

func checkLength(field, v string, min, max int) error {
	if min > 0 && strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	n := utf8.RuneCountInString(v)
	if n < min {
		return invalid("%s must be at least %d characters", field, min)
	}
	if max > 0 && n > max {
		return invalid("%s must be at most %d characters", field, max)
	}
	return nil
}

func checkOneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return invalid("%s must be one of %s", field, strings.Join(allowed, ", "))
}
