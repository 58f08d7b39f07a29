package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintdesk/internal/app"
	"sprintdesk/internal/config"
	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
	"sprintdesk/internal/notify"
)

var rootCmd = &cobra.Command{
	Use:   "sd",
	Short: "Sprintdesk CLI",
	Long: `Sprintdesk manages projects, tasks and sprints for a company workspace.
- Workspace: the directory holding sprintdesk.yml and the .sprintdesk state folder (session, dev database).
- Session: 'sd login' stores a token; an expired token signs you out on the next call.
- Projects own tasks and sprints; roles grant permissions; invitations bring in new members.
- 'sd serve' runs a local development API so every command works offline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported marks a failure the notifier already showed.
var errReported = errors.New("operation failed")

// reporter prints notifications and remembers whether any was destructive.
type reporter struct {
	out    notify.Terminal
	failed atomic.Bool
}

func (r *reporter) Notify(n notify.Notification) {
	if n.Variant == notify.Destructive {
		r.failed.Store(true)
	}
	r.out.Notify(n)
}

var notices = &reporter{out: notify.Terminal{Out: os.Stderr}}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	if err != nil || notices.failed.Load() {
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPRINTDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("project", "", "project id (overrides project.id)")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL (overrides server.base_url)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
	rootCmd.PersistentFlags().Bool("debug", false, "debug logging")
	for _, name := range []string{"workspace", "json", "project", "base-url", "log-level", "debug"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(sprintCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(inviteCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(reportCmd())
}

func newLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	if viper.GetBool("debug") {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	return l
}

// loadConfig reads sprintdesk.yml and applies flag and env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(viper.GetString("project")); v != "" {
		cfg.Project.ID = v
	}
	if v := strings.TrimSpace(viper.GetString("base-url")); v != "" {
		cfg.Server.BaseURL = v
	}
	return cfg, cfg.Validate()
}

type appOption func(*app.Options)

func withPageSize(n int) appOption { return func(o *app.Options) { o.PageSize = n } }

func withServerPaging(on bool) appOption { return func(o *app.Options) { o.ServerPaging = on } }

func loadApp(opts ...appOption) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	o := app.Options{
		Workspace: viper.GetString("workspace"),
		Notifier:  notices,
		Log:       newLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return app.New(cfg, o)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

// submitDialog submits and prints field errors when the draft is invalid.
func submitDialog[D any, E domain.Entity](cmd *cobra.Command, d *form.Dialog[D, E]) error {
	if d.Submit(cmd.Context()) {
		return nil
	}
	if d.State() == form.Invalid {
		for _, line := range fieldErrorLines(d.Errors()) {
			fmt.Fprintln(os.Stderr, line)
		}
	}
	return errReported
}

// fieldErrorLines renders field errors sorted by field name.
func fieldErrorLines(errs map[string]string) []string {
	lines := make([]string, 0, len(errs))
	for _, field := range slices.Sorted(maps.Keys(errs)) {
		lines = append(lines, field+": "+errs[field])
	}
	return lines
}

func parseDate(flag, v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, v)
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}
