package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestTerminalWritesTitleAndDescription(t *testing.T) {
	var out bytes.Buffer
	Terminal{Out: &out}.Notify(Notification{Title: "Delete task", Description: "not found", Variant: Destructive})
	if !strings.Contains(out.String(), "Delete task: not found") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestLogUsesWarnForDestructive(t *testing.T) {
	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	Log{Logger: logger}.Notify(Notification{Title: "Save", Description: "boom", Variant: Destructive})
	if !strings.Contains(out.String(), `"level":"warning"`) || !strings.Contains(out.String(), `"title":"Save"`) {
		t.Fatalf("unexpected log %q", out.String())
	}
}

func TestMultiSkipsNil(t *testing.T) {
	var a, b Recorder
	Multi{&a, nil, &b}.Notify(Notification{Title: "x"})
	if len(a.All()) != 1 || len(b.All()) != 1 {
		t.Fatalf("fan out failed: %d %d", len(a.All()), len(b.All()))
	}
}
