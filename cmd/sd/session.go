package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintdesk/internal/config"
	"sprintdesk/internal/db"
	"sprintdesk/internal/domain"
	"sprintdesk/internal/engine"
	"sprintdesk/internal/migrate"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/server"
	"sprintdesk/internal/session"
	sdk "sprintdesk/sdk/go"
)

func loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in against a dev server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email required")
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			res := remote.Run(cmd.Context(), a.Runner, nil, remote.Op[sdk.LoginResponse]{
				Name:    "operations.auth.login",
				Success: "operations.auth.loggedIn",
				Call: func(ctx context.Context) (sdk.LoginResponse, error) {
					return a.Client.Login(ctx, email)
				},
			})
			if !res.OK() {
				return errReported
			}
			resp := res.Value()
			if err := a.Session.Save(session.Session{
				Token:     resp.Token,
				UserID:    resp.User.ID,
				Email:     resp.User.Email,
				FullName:  resp.User.FullName,
				ExpiresAt: resp.ExpiresAt,
			}); err != nil {
				return err
			}
			a.Store.User.Set(&resp.User)
			if viper.GetBool("json") {
				return printJSON(resp.User)
			}
			fmt.Printf("Signed in as %s (expires %s)\n", resp.User.Email, resp.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			a.Session.SignOut()
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			s, err := a.RequireSession()
			if err != nil {
				return err
			}
			claims, err := session.Inspect(s.Token)
			if err != nil {
				return err
			}
			user := domain.CompanyUser{ID: s.UserID, Email: s.Email, FullName: s.FullName}
			if !offline {
				res := remote.Run(cmd.Context(), a.Runner, nil, remote.Op[domain.CompanyUser]{
					Name: "operations.auth.me",
					Call: a.Client.Me,
				})
				if !res.OK() {
					return errReported
				}
				user = res.Value()
				a.Store.User.Set(&user)
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"user":       user,
					"expires_at": claims.ExpiresAt,
					"expired":    s.Expired(time.Now()),
				})
			}
			tw := newTable()
			tw.AppendRows([]table.Row{
				{"ID", user.ID},
				{a.Dict.T("labels.member.email"), user.Email},
				{a.Dict.T("labels.member.name"), user.FullName},
				{a.Dict.T("labels.member.role"), user.RoleID},
				{"Issued", claims.IssuedAt.Local().Format(time.RFC1123)},
				{"Expires", claims.ExpiresAt.Local().Format(time.RFC1123)},
			})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "only decode the stored token")
	return cmd
}

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	c.AddCommand(configInitCmd())
	c.AddCommand(configShowCmd())
	return c
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter sprintdesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(viper.GetString("project"))), 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local development API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Dev.Addr
			}
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			log := newLogger()
			if _, err := migrate.Up(cmd.Context(), conn, log); err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			if err := e.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: "/v0",
				Auth: server.AuthConfig{
					JWTSecret: cfg.Dev.JWTSecret,
					TokenTTL:  cfg.Dev.TokenTTL,
					Logger:    log,
				},
				Logger: log,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving sprintdesk dev API on http://%s/v0 (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to dev.addr)")
	return cmd
}
