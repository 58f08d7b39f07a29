package form

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sprintdesk/internal/i18n"
	"sprintdesk/internal/notify"
	"sprintdesk/internal/remote"
	sdk "sprintdesk/sdk/go"
)

type thing struct {
	ID    string
	Name  string
	Start time.Time
	End   time.Time
}

func (t thing) EntityID() string { return t.ID }

type draft struct {
	Name  string
	Tags  []string
	Start *time.Time
	End   *time.Time
}

var (
	nameField = Field[draft, string]{
		Name:       "name",
		Get:        func(d draft) string { return d.Name },
		Set:        func(d *draft, v string) { d.Name = v },
		Validators: []Validator[string]{Required(), Length(2, 50)},
	}
	tagsField = Field[draft, []string]{
		Name:       "tags",
		Get:        func(d draft) []string { return d.Tags },
		Set:        func(d *draft, v []string) { d.Tags = v },
		Validators: []Validator[[]string]{NotEmpty[string]()},
	}
)

type reconciled struct {
	created, updated []thing
}

func (r *reconciled) Created(t thing)  { r.created = append(r.created, t) }
func (r *reconciled) Updated(t thing)  { r.updated = append(r.updated, t) }
func (r *reconciled) Deleted(string) {}

type harness struct {
	dialog  *Dialog[draft, thing]
	done    *reconciled
	rec     *notify.Recorder
	calls   int
	failure error
}

func newHarness() *harness {
	h := &harness{done: &reconciled{}, rec: &notify.Recorder{}}
	h.dialog = New(Options[draft, thing]{
		Defaults: func() draft { return draft{Tags: []string{"default"}} },
		Seed:     func(t thing) draft { return draft{Name: t.Name, Tags: []string{"seeded"}} },
		Fields:   []Binding[draft]{nameField, tagsField},
		Rules: []Rule[draft]{DateRange("end",
			func(d draft) *time.Time { return d.Start },
			func(d draft) *time.Time { return d.End })},
		Create: func(ctx context.Context, d draft) (thing, error) {
			h.calls++
			if h.failure != nil {
				return thing{}, h.failure
			}
			return thing{ID: "new", Name: d.Name}, nil
		},
		Update: func(ctx context.Context, id string, d draft) (thing, error) {
			h.calls++
			return thing{ID: id, Name: d.Name}, nil
		},
		Done:   h.done,
		Runner: &remote.Runner{Notifier: h.rec},
		Ops:    Ops{Create: "operations.tasks.create", Update: "operations.tasks.update", Created: "operations.tasks.created", Updated: "operations.tasks.updated"},
	})
	return h
}

func TestInitialStateIsClosed(t *testing.T) {
	h := newHarness()
	if h.dialog.State() != Closed {
		t.Fatalf("state: %s", h.dialog.State())
	}
	if err := SetField(h.dialog, nameField, "x"); err != ErrNotOpen {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	if h.dialog.Submit(context.Background()) {
		t.Fatalf("closed dialog must not submit")
	}
}

func TestInvalidDraftIssuesNoCall(t *testing.T) {
	h := newHarness()
	h.dialog.OpenCreate()
	_ = SetField(h.dialog, tagsField, nil)
	if h.dialog.Submit(context.Background()) {
		t.Fatalf("invalid draft should not close")
	}
	if h.calls != 0 {
		t.Fatalf("no remote call expected, got %d", h.calls)
	}
	if h.dialog.State() != Invalid {
		t.Fatalf("state: %s", h.dialog.State())
	}
	errs := h.dialog.Errors()
	if len(errs) != 2 || errs["name"] == "" || errs["tags"] == "" {
		t.Fatalf("unexpected errors %v", errs)
	}

	_ = SetField(h.dialog, nameField, "ok")
	if _, still := h.dialog.Errors()["name"]; still {
		t.Fatalf("setting a field should clear its error")
	}
	_ = SetField(h.dialog, tagsField, []string{"a"})
	if h.dialog.State() != Open {
		t.Fatalf("clearing every error should reopen, got %s", h.dialog.State())
	}
}

func TestDateRangeRule(t *testing.T) {
	h := newHarness()
	h.dialog.OpenCreate()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_ = h.dialog.Edit(func(d *draft) {
		d.Name = "Sprint"
		d.Start = &start
		d.End = &end
	})
	h.dialog.Submit(context.Background())
	if msg := h.dialog.Errors()["end"]; msg != i18n.Default().T("validation.dateRange") {
		t.Fatalf("expected date range error, got %q", msg)
	}
	same := start
	_ = h.dialog.Edit(func(d *draft) { d.End = &same })
	if !h.dialog.Submit(context.Background()) {
		t.Fatalf("end equal to start is valid")
	}
}

func TestCreateSuccessClosesAndReconciles(t *testing.T) {
	h := newHarness()
	h.dialog.OpenCreate()
	_ = SetField(h.dialog, nameField, "Alpha")
	if !h.dialog.Submit(context.Background()) {
		t.Fatalf("submit should succeed")
	}
	if h.dialog.State() != Closed {
		t.Fatalf("state: %s", h.dialog.State())
	}
	if h.calls != 1 || len(h.done.created) != 1 || h.done.created[0].Name != "Alpha" {
		t.Fatalf("calls=%d created=%+v", h.calls, h.done.created)
	}
	if d := h.dialog.Draft(); d.Name != "" || d.Tags != nil {
		t.Fatalf("draft should be discarded: %+v", d)
	}
}

func TestEditSeedsFromEntity(t *testing.T) {
	h := newHarness()
	h.dialog.OpenEdit(thing{ID: "t1", Name: "Bravo"})
	if h.dialog.Mode() != Edit || h.dialog.Draft().Name != "Bravo" {
		t.Fatalf("draft not seeded: %+v", h.dialog.Draft())
	}
	_ = SetField(h.dialog, nameField, "Bravo2")
	if !h.dialog.Submit(context.Background()) {
		t.Fatalf("submit should succeed")
	}
	if len(h.done.updated) != 1 || h.done.updated[0] != (thing{ID: "t1", Name: "Bravo2"}) {
		t.Fatalf("updated: %+v", h.done.updated)
	}
	notes := h.rec.All()
	if len(notes) != 1 || notes[0].Description != "Task updated" {
		t.Fatalf("notifications: %+v", notes)
	}
}

func TestFailureKeepsDialogOpen(t *testing.T) {
	h := newHarness()
	h.failure = &sdk.APIError{StatusCode: http.StatusBadRequest, Message: "name already taken"}
	h.dialog.OpenCreate()
	_ = SetField(h.dialog, nameField, "Alpha")
	if h.dialog.Submit(context.Background()) {
		t.Fatalf("submit should fail")
	}
	if h.dialog.State() != Open {
		t.Fatalf("state: %s", h.dialog.State())
	}
	if len(h.dialog.Errors()) != 0 {
		t.Fatalf("server failures are not field errors")
	}
	if h.dialog.Draft().Name != "Alpha" {
		t.Fatalf("draft should survive a failed submit")
	}
	notes := h.rec.All()
	if len(notes) != 1 || notes[0].Variant != notify.Destructive || notes[0].Description != "name already taken" {
		t.Fatalf("notifications: %+v", notes)
	}
	if len(h.done.created) != 0 {
		t.Fatalf("no reconciliation on failure")
	}

	h.failure = nil
	if !h.dialog.Submit(context.Background()) {
		t.Fatalf("resubmission should succeed")
	}
	if h.calls != 2 {
		t.Fatalf("calls: %d", h.calls)
	}
}

func TestConcurrentSubmitIssuesOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	d := New(Options[draft, thing]{
		Fields: []Binding[draft]{nameField},
		Create: func(ctx context.Context, dr draft) (thing, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release
			}
			return thing{}, &sdk.APIError{StatusCode: http.StatusBadRequest, Message: "rejected"}
		},
		Runner: &remote.Runner{Notifier: &notify.Recorder{}},
		Ops:    Ops{Create: "operations.tasks.create"},
	})
	d.OpenCreate()
	_ = SetField(d, nameField, "Alpha")

	const n = 8
	var wg sync.WaitGroup
	rejected := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Submit(context.Background())
			rejected <- struct{}{}
		}()
	}
	<-started
	// Every submit but the one in flight returns without calling.
	for i := 0; i < n-1; i++ {
		<-rejected
	}
	if d.State() != Submitting {
		t.Fatalf("state: %s", d.State())
	}
	d.Cancel()
	if d.State() != Submitting {
		t.Fatalf("cancel must not interrupt a submit, got %s", d.State())
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one create call, got %d", got)
	}
	if d.State() != Open || d.Draft().Name != "Alpha" {
		t.Fatalf("failed submit should leave the draft open, got %s %+v", d.State(), d.Draft())
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	h := newHarness()
	h.dialog.OpenCreate()
	_ = SetField(h.dialog, nameField, "x")
	h.dialog.Cancel()
	if h.dialog.State() != Closed || h.dialog.Draft().Name != "" {
		t.Fatalf("cancel should close and discard")
	}
	h.dialog.OpenCreate()
	if h.dialog.Draft().Name != "" || len(h.dialog.Draft().Tags) != 1 {
		t.Fatalf("reopen should start from defaults: %+v", h.dialog.Draft())
	}
}

func TestValidators(t *testing.T) {
	dict := i18n.Default()
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"required blank", Required()("   ", dict), "validation.required"},
		{"required ok", Required()("a", dict), ""},
		{"too short", Length(2, 50)("a", dict), "validation.tooShort"},
		{"too long", Length(2, 5)("abcdef", dict), "validation.tooLong"},
		{"runes counted", Length(2, 3)("éèê", dict), ""},
		{"max length", MaxLength(3)("abcd", dict), "validation.tooLong"},
		{"email ok", Email()("ana@example.com", dict), ""},
		{"email empty", Email()("", dict), ""},
		{"email display name", Email()("Ana <ana@example.com>", dict), "validation.email"},
		{"email no domain dot", Email()("ana@localhost", dict), "validation.email"},
		{"email garbage", Email()("nope", dict), "validation.email"},
		{"not empty", NotEmpty[int]()(nil, dict), "validation.selectOne"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := ""
			if tc.want != "" {
				want = dict.T(tc.want)
			}
			if tc.got != want {
				t.Fatalf("got %q want %q", tc.got, want)
			}
		})
	}
}
