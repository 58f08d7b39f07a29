// Package remote wraps a single request/response exchange with the API: it
// drives a loading flag, classifies failures, notifies the user and never lets
// an error or panic escape to the caller.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sprintdesk/internal/i18n"
	"sprintdesk/internal/notify"
)

// Kind classifies a failed exchange.
type Kind int

const (
	Unclassified Kind = iota
	BadRequest
	SessionExpired
	Forbidden
	ServerError
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case SessionExpired:
		return "session_expired"
	case Forbidden:
		return "forbidden"
	case ServerError:
		return "server_error"
	default:
		return "unclassified"
	}
}

// Failure is a classified error.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// StatusError is implemented by transport errors that carry an HTTP-like
// status. The SDK's *APIError satisfies it.
type StatusError interface {
	error
	HTTPStatus() int
	ServerMessage() string
	SessionExpired() bool
}

// Classify maps any error onto the failure taxonomy. Messages are the
// server's when it sent one, otherwise a dictionary fallback.
func Classify(err error, dict i18n.Translator) *Failure {
	if dict == nil {
		dict = i18n.Default()
	}
	f := &Failure{Kind: Unclassified, Err: err}
	var se StatusError
	if !errors.As(err, &se) {
		f.Message = dict.T("errors.unclassified")
		if err != nil && err.Error() != "" {
			f.Message = err.Error()
		}
		return f
	}
	f.Status = se.HTTPStatus()
	msg := se.ServerMessage()
	switch {
	case f.Status == http.StatusBadRequest:
		f.Kind = BadRequest
		f.Message = orDefault(msg, dict.T("errors.badRequest"))
	case f.Status == http.StatusUnauthorized && se.SessionExpired():
		f.Kind = SessionExpired
		f.Message = dict.T("errors.sessionExpired")
	case f.Status == http.StatusUnauthorized, f.Status == http.StatusForbidden:
		f.Kind = Forbidden
		f.Message = orDefault(msg, dict.T("errors.forbidden"))
	case f.Status >= http.StatusInternalServerError:
		f.Kind = ServerError
		f.Message = dict.T("errors.serverError")
	default:
		f.Message = orDefault(msg, dict.T("errors.unclassified"))
	}
	return f
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// Result holds either a value or a failure, never both.
type Result[T any] struct {
	value T
	fail  *Failure
}

func (r Result[T]) OK() bool { return r.fail == nil }

// Value returns the success value; the zero value on failure.
func (r Result[T]) Value() T { return r.value }

func (r Result[T]) Failure() *Failure { return r.fail }

// Flag receives loading state transitions.
type Flag interface {
	Set(loading bool)
}

// FlagFunc adapts a function to Flag.
type FlagFunc func(bool)

func (f FlagFunc) Set(v bool) { f(v) }

// SignOut clears the authenticated session.
type SignOut interface {
	SignOut()
}

// SignOutFunc adapts a function to SignOut.
type SignOutFunc func()

func (f SignOutFunc) SignOut() { f() }

// Runner carries the collaborators shared by every operation.
type Runner struct {
	Notifier notify.Notifier
	SignOut  SignOut
	Dict     i18n.Translator
	Log      logrus.FieldLogger
	// Duration of notifications; notify.DefaultDuration when zero.
	Duration time.Duration
}

func (r *Runner) dict() i18n.Translator {
	if r == nil || r.Dict == nil {
		return i18n.Default()
	}
	return r.Dict
}

func (r *Runner) log() logrus.FieldLogger {
	if r == nil || r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Runner) notify(n notify.Notification) {
	if r == nil || r.Notifier == nil {
		return
	}
	if n.Duration == 0 {
		n.Duration = r.Duration
	}
	if n.Duration == 0 {
		n.Duration = notify.DefaultDuration
	}
	r.Notifier.Notify(n)
}

// Op describes one exchange. Name and Success are dictionary keys.
type Op[T any] struct {
	Name    string
	Success string
	Call    func(ctx context.Context) (T, error)
}

// Run performs op. loading is set true once before the call and false once
// after it, on every path.
func Run[T any](ctx context.Context, r *Runner, loading Flag, op Op[T]) (res Result[T]) {
	if loading != nil {
		loading.Set(true)
	}
	defer func() {
		if loading != nil {
			loading.Set(false)
		}
	}()

	value, err := call(ctx, op)
	if err != nil {
		res.fail = r.fail(op.Name, err)
		return res
	}
	res.value = value
	if op.Success != "" {
		r.notify(notify.Notification{
			Title:       r.dict().T("notifications.success"),
			Description: r.dict().T(op.Success),
			Variant:     notify.Success,
		})
	}
	return res
}

func call[T any](ctx context.Context, op Op[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v", op.Name, p)
		}
	}()
	if op.Call == nil {
		return value, errors.New("operation has no call")
	}
	return op.Call(ctx)
}

func (r *Runner) fail(name string, err error) *Failure {
	f := Classify(err, r.dict())
	r.log().WithError(err).WithFields(logrus.Fields{
		"operation": name,
		"kind":      f.Kind.String(),
		"status":    f.Status,
	}).Warn("remote operation failed")
	r.notify(notify.Notification{
		Title:       r.dict().T(name),
		Description: f.Message,
		Variant:     notify.Destructive,
	})
	if f.Kind == SessionExpired && r != nil && r.SignOut != nil {
		r.SignOut.SignOut()
	}
	return f
}
