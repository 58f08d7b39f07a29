package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sirupsen/logrus"
)

type Variant string

const (
	Success     Variant = "success"
	Destructive Variant = "destructive"
)

// DefaultDuration is how long a notification stays visible when unset.
const DefaultDuration = 3 * time.Second

type Notification struct {
	Title       string
	Description string
	Variant     Variant
	Duration    time.Duration
}

// Notifier displays a notification. Fire and forget.
type Notifier interface {
	Notify(Notification)
}

// Func adapts a plain function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Terminal writes colored one-line notifications.
type Terminal struct {
	Out io.Writer
}

func (t Terminal) Notify(n Notification) {
	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	color := text.Colors{text.FgGreen}
	if n.Variant == Destructive {
		color = text.Colors{text.FgRed, text.Bold}
	}
	line := n.Title
	if n.Description != "" {
		line += ": " + n.Description
	}
	fmt.Fprintln(out, color.Sprint(line))
}

// Log routes notifications to a logrus logger.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithFields(logrus.Fields{"title": n.Title, "variant": n.Variant, "duration": n.Duration})
	if n.Variant == Destructive {
		entry.Warn(n.Description)
		return
	}
	entry.Info(n.Description)
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, each := range m {
		if each != nil {
			each.Notify(n)
		}
	}
}
