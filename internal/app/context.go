// Package app assembles the client-side collaborators for one workspace:
// config, session, SDK client, shared store, runner and board.
package app

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"sprintdesk/internal/board"
	"sprintdesk/internal/config"
	"sprintdesk/internal/i18n"
	"sprintdesk/internal/notify"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/session"
	"sprintdesk/internal/store"
	sdk "sprintdesk/sdk/go"
)

// DictFile is the optional dictionary override inside the workspace.
const DictFile = "dict.yml"

type Options struct {
	Workspace string
	// Notifier defaults to logging through Log.
	Notifier notify.Notifier
	Log      logrus.FieldLogger
	// PageSize overrides list.page_size when positive.
	PageSize int
	// ServerPaging asks the task list to page on the server.
	ServerPaging bool
}

type App struct {
	Workspace string
	Config    *config.Config
	Session   session.File
	// Current is nil when nobody is signed in.
	Current *session.Session
	Client  *sdk.Client
	Store   *store.Store
	Dict    *i18n.Dict
	Runner  *remote.Runner
	Board   *board.Board
	Log     logrus.FieldLogger
}

// New wires an App from a loaded config. A missing session is not an error;
// calls that need one fail with a 401 from the server.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default("")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	dict, err := i18n.Load(filepath.Join(opts.Workspace, ".sprintdesk", DictFile))
	if err != nil {
		return nil, err
	}
	st := store.New()
	var a *App
	file := session.File{
		Path:      session.Path(opts.Workspace),
		Log:       log,
		OnSignOut: func() { a.signedOut() },
	}
	current, err := file.Load()
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}

	client := sdk.New(cfg.Server.BaseURL, cfg.Project.ID)
	if cfg.Server.Timeout > 0 {
		client.Timeout = cfg.Server.Timeout
	}
	if current != nil {
		client.BearerToken = current.Token
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Log{Logger: log}
	}
	pageSize := cfg.List.PageSize
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}
	runner := &remote.Runner{
		Notifier: notifier,
		SignOut:  file,
		Dict:     dict,
		Log:      log,
		Duration: cfg.Notifications.Duration,
	}

	a = &App{
		Workspace: opts.Workspace,
		Config:    cfg,
		Session:   file,
		Current:   current,
		Client:    client,
		Store:     st,
		Dict:      dict,
		Runner:    runner,
		Log:       log,
	}
	a.Board = board.New(client, runner, st, board.Settings{
		PageSize:       pageSize,
		ServerPaging:   opts.ServerPaging,
		ClearOnRefresh: cfg.List.ClearOnRefresh,
		Locale:         Locale(cfg.Locale),
	})
	return a, nil
}

// signedOut drops everything tied to the removed session so later calls in
// this process go out unauthenticated.
func (a *App) signedOut() {
	a.Store.Reset()
	a.Client.BearerToken = ""
	a.Current = nil
}

// RequireSession fails when nobody is signed in.
func (a *App) RequireSession() (*session.Session, error) {
	if a.Current == nil {
		return nil, session.ErrNoSession
	}
	return a.Current, nil
}

// RequireProject returns the configured project id.
func (a *App) RequireProject() (string, error) {
	id := strings.TrimSpace(a.Client.ProjectID)
	if id == "" {
		return "", errors.New("project not specified; use --project or set project.id")
	}
	return id, nil
}

// Locale parses a BCP 47 tag, falling back to English.
func Locale(tag string) language.Tag {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return language.English
	}
	return t
}
