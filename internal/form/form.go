// Package form drives a create/edit dialog: a private draft, per-field
// validation errors and a single submit exchange that closes the dialog on
// success.
package form

import (
	"context"
	"errors"
	"sync"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/i18n"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/remote"
)

type State int

const (
	Closed State = iota
	Open
	Invalid
	Submitting
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Invalid:
		return "invalid"
	case Submitting:
		return "submitting"
	default:
		return "closed"
	}
}

type Mode int

const (
	Create Mode = iota
	Edit
)

var ErrNotOpen = errors.New("dialog is not open")

// Binding is a validated draft field.
type Binding[D any] interface {
	FieldName() string
	Validate(d D, dict i18n.Translator) string
}

// Field binds one draft field: how to read it, how to write it and how to
// validate it.
type Field[D, V any] struct {
	Name       string
	Get        func(D) V
	Set        func(*D, V)
	Validators []Validator[V]
}

func (f Field[D, V]) FieldName() string { return f.Name }

// Validate returns the first failing validator's message.
func (f Field[D, V]) Validate(d D, dict i18n.Translator) string {
	v := f.Get(d)
	for _, check := range f.Validators {
		if msg := check(v, dict); msg != "" {
			return msg
		}
	}
	return ""
}

// Ops holds dictionary keys naming the submit exchanges.
type Ops struct {
	Create  string
	Update  string
	Created string
	Updated string
}

type Options[D any, E domain.Entity] struct {
	Defaults func() D
	Seed     func(E) D
	Fields   []Binding[D]
	Rules    []Rule[D]
	Create   func(ctx context.Context, d D) (E, error)
	Update   func(ctx context.Context, id string, d D) (E, error)
	Done     listing.Reconciler[E]
	Runner   *remote.Runner
	Ops      Ops
}

type Dialog[D any, E domain.Entity] struct {
	opts Options[D, E]

	mu     sync.Mutex
	state  State
	mode   Mode
	target string
	draft  D
	errs   map[string]string
}

func New[D any, E domain.Entity](opts Options[D, E]) *Dialog[D, E] {
	return &Dialog[D, E]{opts: opts}
}

// OpenCreate seeds a defaulted draft.
func (d *Dialog[D, E]) OpenCreate() {
	var draft D
	if d.opts.Defaults != nil {
		draft = d.opts.Defaults()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Open
	d.mode = Create
	d.target = ""
	d.draft = draft
	d.errs = nil
}

// OpenEdit seeds the draft from a copy of e's editable fields.
func (d *Dialog[D, E]) OpenEdit(e E) {
	var draft D
	if d.opts.Seed != nil {
		draft = d.opts.Seed(e)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Open
	d.mode = Edit
	d.target = e.EntityID()
	d.draft = draft
	d.errs = nil
}

// Cancel discards the draft. It has no effect while submitting.
func (d *Dialog[D, E]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Submitting {
		return
	}
	d.reset()
}

func (d *Dialog[D, E]) reset() {
	var zero D
	d.state = Closed
	d.target = ""
	d.draft = zero
	d.errs = nil
}

// Edit mutates the draft in place.
func (d *Dialog[D, E]) Edit(fn func(*D)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Open && d.state != Invalid {
		return ErrNotOpen
	}
	fn(&d.draft)
	return nil
}

// SetField writes one field and clears its error.
func SetField[D any, E domain.Entity, V any](d *Dialog[D, E], f Field[D, V], v V) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Open && d.state != Invalid {
		return ErrNotOpen
	}
	f.Set(&d.draft, v)
	delete(d.errs, f.Name)
	if d.state == Invalid && len(d.errs) == 0 {
		d.state = Open
	}
	return nil
}

// validate runs every field and rule against the draft. An empty map means
// valid.
func (d *Dialog[D, E]) validate(draft D) map[string]string {
	dict := d.dict()
	errs := map[string]string{}
	for _, f := range d.opts.Fields {
		if msg := f.Validate(draft, dict); msg != "" {
			errs[f.FieldName()] = msg
		}
	}
	for _, r := range d.opts.Rules {
		if _, taken := errs[r.Field]; taken {
			continue
		}
		if msg := r.Check(draft, dict); msg != "" {
			errs[r.Field] = msg
		}
	}
	return errs
}

func (d *Dialog[D, E]) dict() i18n.Translator {
	if d.opts.Runner != nil && d.opts.Runner.Dict != nil {
		return d.opts.Runner.Dict
	}
	return i18n.Default()
}

// Submit validates the draft and, when it is valid, issues one create or
// update exchange. It reports whether the dialog closed.
func (d *Dialog[D, E]) Submit(ctx context.Context) bool {
	d.mu.Lock()
	if d.state != Open && d.state != Invalid {
		d.mu.Unlock()
		return false
	}
	draft, mode, target := d.draft, d.mode, d.target
	errs := d.validate(draft)
	if len(errs) > 0 {
		d.state = Invalid
		d.errs = errs
		d.mu.Unlock()
		return false
	}
	d.errs = nil
	// Claimed before unlocking so a second Submit or a Cancel sees it.
	d.state = Submitting
	d.mu.Unlock()

	op := remote.Op[E]{Name: d.opts.Ops.Create, Success: d.opts.Ops.Created}
	if mode == Edit {
		op = remote.Op[E]{Name: d.opts.Ops.Update, Success: d.opts.Ops.Updated}
	}
	op.Call = func(ctx context.Context) (E, error) {
		var zero E
		if mode == Edit {
			if d.opts.Update == nil {
				return zero, errors.New("dialog has no update")
			}
			return d.opts.Update(ctx, target, draft)
		}
		if d.opts.Create == nil {
			return zero, errors.New("dialog has no create")
		}
		return d.opts.Create(ctx, draft)
	}

	res := remote.Run(ctx, d.opts.Runner, remote.FlagFunc(d.setSubmitting), op)
	if !res.OK() {
		return false
	}

	d.mu.Lock()
	d.reset()
	d.mu.Unlock()

	if d.opts.Done != nil {
		if mode == Edit {
			d.opts.Done.Updated(res.Value())
		} else {
			d.opts.Done.Created(res.Value())
		}
	}
	return true
}

// setSubmitting only leaves Submitting; Submit enters it under the lock.
func (d *Dialog[D, E]) setSubmitting(v bool) {
	if v {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Submitting {
		d.state = Open
	}
}

func (d *Dialog[D, E]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dialog[D, E]) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Draft returns a copy of the working draft.
func (d *Dialog[D, E]) Draft() D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Errors returns a copy of the field error mapping.
func (d *Dialog[D, E]) Errors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.errs))
	for k, v := range d.errs {
		out[k] = v
	}
	return out
}
