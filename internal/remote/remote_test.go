package remote

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"sprintdesk/internal/notify"
	sdk "sprintdesk/sdk/go"
)

type flagRecorder struct {
	current     bool
	transitions []bool
}

func (f *flagRecorder) Set(v bool) {
	f.current = v
	f.transitions = append(f.transitions, v)
}

func newRunner() (*Runner, *notify.Recorder, *int) {
	rec := &notify.Recorder{}
	signOuts := 0
	r := &Runner{
		Notifier: rec,
		SignOut:  SignOutFunc(func() { signOuts++ }),
	}
	return r, rec, &signOuts
}

func TestRunLoadingFlagDiscipline(t *testing.T) {
	cases := []struct {
		name string
		call func(ctx context.Context) (string, error)
		ok   bool
	}{
		{"success", func(ctx context.Context) (string, error) { return "v", nil }, true},
		{"server error", func(ctx context.Context) (string, error) {
			return "", &sdk.APIError{StatusCode: http.StatusInternalServerError}
		}, false},
		{"network error", func(ctx context.Context) (string, error) { return "", errors.New("dial tcp: refused") }, false},
		{"panic", func(ctx context.Context) (string, error) { panic("boom") }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := newRunner()
			flag := &flagRecorder{}
			var during bool
			res := Run(context.Background(), r, flag, Op[string]{
				Name: "operations.tasks.list",
				Call: func(ctx context.Context) (string, error) {
					during = flag.current
					return tc.call(ctx)
				},
			})
			if !during {
				t.Fatalf("loading should be true while the call is in flight")
			}
			if flag.current {
				t.Fatalf("loading should be false after return")
			}
			if len(flag.transitions) != 2 || !flag.transitions[0] || flag.transitions[1] {
				t.Fatalf("expected exactly [true false], got %v", flag.transitions)
			}
			if res.OK() != tc.ok {
				t.Fatalf("ok: got %v want %v", res.OK(), tc.ok)
			}
			if res.OK() == (res.Failure() != nil) {
				t.Fatalf("exactly one of value/failure must be set")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"bad request verbatim", &sdk.APIError{StatusCode: 400, Message: "title is required"}, BadRequest, "title is required"},
		{"expired by code", &sdk.APIError{StatusCode: 401, Code: "token_expired", Message: "token expired"}, SessionExpired, "Your session has expired. Please sign in again."},
		{"expired by details", &sdk.APIError{StatusCode: 401, Details: map[string]any{"tokenExpired": true}}, SessionExpired, "Your session has expired. Please sign in again."},
		{"unauthorized", &sdk.APIError{StatusCode: 401, Message: "invalid credentials"}, Forbidden, "invalid credentials"},
		{"forbidden", &sdk.APIError{StatusCode: 403}, Forbidden, "You are not allowed to do this"},
		{"server", &sdk.APIError{StatusCode: 503, Message: "db down"}, ServerError, "Something went wrong on our side. Please try again later."},
		{"not found passes message", &sdk.APIError{StatusCode: 404, Message: "task not found"}, Unclassified, "task not found"},
		{"conflict fallback", &sdk.APIError{StatusCode: 409}, Unclassified, "An unexpected error occurred"},
		{"plain error", errors.New("connection reset"), Unclassified, "connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Classify(tc.err, nil)
			if f.Kind != tc.kind {
				t.Fatalf("kind: got %s want %s", f.Kind, tc.kind)
			}
			if f.Message != tc.msg {
				t.Fatalf("message: got %q want %q", f.Message, tc.msg)
			}
			if !errors.Is(f, tc.err) {
				t.Fatalf("failure should wrap the transport error")
			}
		})
	}
}

func TestSessionExpiredSignsOutOnce(t *testing.T) {
	r, rec, signOuts := newRunner()
	res := Run(context.Background(), r, nil, Op[int]{
		Name: "operations.roles.list",
		Call: func(ctx context.Context) (int, error) {
			return 0, &sdk.APIError{StatusCode: 401, Code: "token_expired"}
		},
	})
	if res.OK() {
		t.Fatalf("expected failure")
	}
	if res.Failure().Kind != SessionExpired {
		t.Fatalf("kind: %s", res.Failure().Kind)
	}
	if *signOuts != 1 {
		t.Fatalf("sign out calls: %d", *signOuts)
	}
	notes := rec.All()
	if len(notes) != 1 || notes[0].Variant != notify.Destructive {
		t.Fatalf("expected one destructive notification, got %+v", notes)
	}
	if notes[0].Title != "Load roles" {
		t.Fatalf("title should name the operation, got %q", notes[0].Title)
	}
}

func TestForbiddenDoesNotSignOut(t *testing.T) {
	r, _, signOuts := newRunner()
	Run(context.Background(), r, nil, Op[int]{
		Name: "operations.roles.delete",
		Call: func(ctx context.Context) (int, error) {
			return 0, &sdk.APIError{StatusCode: 401, Message: "nope"}
		},
	})
	if *signOuts != 0 {
		t.Fatalf("forbidden must not sign out")
	}
}

func TestSuccessNotification(t *testing.T) {
	r, rec, _ := newRunner()
	res := Run(context.Background(), r, nil, Op[string]{
		Name:    "operations.tasks.create",
		Success: "operations.tasks.created",
		Call:    func(ctx context.Context) (string, error) { return "t1", nil },
	})
	if !res.OK() || res.Value() != "t1" {
		t.Fatalf("unexpected result %+v", res)
	}
	notes := rec.All()
	if len(notes) != 1 || notes[0].Variant != notify.Success || notes[0].Description != "Task created" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	if notes[0].Duration != notify.DefaultDuration {
		t.Fatalf("duration: %v", notes[0].Duration)
	}
}

func TestNilRunnerIsSafe(t *testing.T) {
	res := Run(context.Background(), nil, nil, Op[int]{
		Name: "x",
		Call: func(ctx context.Context) (int, error) { return 0, errors.New("fail") },
	})
	if res.OK() {
		t.Fatalf("expected failure")
	}
}
