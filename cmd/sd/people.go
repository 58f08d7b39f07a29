package main

import (
	"context"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sprintdesk/internal/app"
	"sprintdesk/internal/board"
	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
)

func roleCmd() *cobra.Command {
	r := &cobra.Command{Use: "role", Short: "Manage company roles"}
	r.AddCommand(roleListCmd())
	r.AddCommand(roleCreateCmd())
	r.AddCommand(roleDeleteCmd())
	return r
}

func roleListCmd() *cobra.Command {
	var f listFlags
	var permission string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize))
			if err != nil {
				return err
			}
			c := a.Board.Roles
			items, err := runList(cmd.Context(), c, board.RoleFilter{Search: f.search, Permission: permission}, f)
			if err != nil {
				return err
			}
			d := a.Dict
			return renderPage(d, c, items,
				table.Row{"ID", d.T("labels.role.name"), d.T("labels.role.description"), d.T("labels.role.permissions")},
				func(r domain.Role) table.Row {
					return table.Row{r.ID, r.Name, r.Description, strings.Join(r.Permissions, ", ")}
				})
		},
	}
	f.bind(cmd, "name, permissions")
	cmd.Flags().StringVar(&permission, "permission", "", "only roles granting this permission")
	return cmd
}

func roleCreateCmd() *cobra.Command {
	var name, description string
	var permissions []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			d := a.Board.RoleDialog
			d.OpenCreate()
			_ = form.SetField(d, board.RoleName, name)
			_ = form.SetField(d, board.RoleDescription, description)
			_ = form.SetField(d, board.RolePermissions, permissions)
			if err := submitDialog(cmd, d); err != nil {
				return err
			}
			return printCreated(a.Board.Roles.Items())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "role name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringSliceVar(&permissions, "permission", nil, "granted permission (repeatable): "+strings.Join(domain.Permissions, ", "))
	return cmd
}

func roleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !a.Board.DeleteRole(cmd.Context(), args[0]) {
				return errReported
			}
			return nil
		},
	}
}

func inviteCmd() *cobra.Command {
	i := &cobra.Command{Use: "invite", Short: "Manage invitations"}
	i.AddCommand(inviteListCmd())
	i.AddCommand(inviteCreateCmd())
	i.AddCommand(inviteRevokeCmd())
	return i
}

// loadRoles fills the store so role ids render as names.
func loadRoles(ctx context.Context, a *app.App) bool {
	return a.Board.Roles.Refresh(ctx, board.RoleFilter{})
}

// resolveRole accepts a role id or a case-insensitive role name.
func resolveRole(a *app.App, ref string) string {
	for _, r := range a.Store.Roles.Get() {
		if r.ID == ref || strings.EqualFold(r.Name, ref) {
			return r.ID
		}
	}
	return ref
}

func inviteListCmd() *cobra.Command {
	var f listFlags
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invitations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize))
			if err != nil {
				return err
			}
			if !loadRoles(cmd.Context(), a) {
				return errReported
			}
			filter := board.InvitationFilter{Search: f.search, Status: f.status}
			if role != "" {
				filter.RoleID = resolveRole(a, role)
			}
			c := a.Board.Invitations
			items, err := runList(cmd.Context(), c, filter, f)
			if err != nil {
				return err
			}
			d := a.Dict
			return renderPage(d, c, items,
				table.Row{"ID", d.T("labels.invitation.email"), d.T("labels.invitation.role"), d.T("labels.invitation.status"), d.T("labels.invitation.expires")},
				func(i domain.Invitation) table.Row {
					return table.Row{i.ID, i.Email, a.Store.RoleName(i.RoleID), i.Status, i.ExpiresAt.Local().Format(time.DateTime)}
				})
		},
	}
	f.bind(cmd, "email, status, expires, created")
	cmd.Flags().StringVar(&role, "role", "", "role id or name filter")
	return cmd
}

func inviteCreateCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Invite someone by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if role != "" {
				if !loadRoles(cmd.Context(), a) {
					return errReported
				}
				role = resolveRole(a, role)
			}
			d := a.Board.InviteDialog
			d.OpenCreate()
			_ = form.SetField(d, board.InviteEmail, email)
			_ = form.SetField(d, board.InviteRole, role)
			if err := submitDialog(cmd, d); err != nil {
				return err
			}
			return printCreated(a.Board.Invitations.Items())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "", "role id or name")
	return cmd
}

func inviteRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a pending invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !a.Board.RevokeInvitation(cmd.Context(), args[0]) {
				return errReported
			}
			return nil
		},
	}
}

func memberCmd() *cobra.Command {
	m := &cobra.Command{Use: "member", Short: "Company members"}
	m.AddCommand(memberListCmd())
	return m
}

func memberListCmd() *cobra.Command {
	var f listFlags
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize))
			if err != nil {
				return err
			}
			if !loadRoles(cmd.Context(), a) {
				return errReported
			}
			filter := board.MemberFilter{Search: f.search}
			if role != "" {
				filter.RoleID = resolveRole(a, role)
			}
			c := a.Board.Members
			items, err := runList(cmd.Context(), c, filter, f)
			if err != nil {
				return err
			}
			d := a.Dict
			return renderPage(d, c, items,
				table.Row{"ID", d.T("labels.member.name"), d.T("labels.member.email"), d.T("labels.member.role")},
				func(u domain.CompanyUser) table.Row {
					return table.Row{u.ID, u.FullName, u.Email, a.Store.RoleName(u.RoleID)}
				})
		},
	}
	f.bind(cmd, "name, email, joined")
	cmd.Flags().StringVar(&role, "role", "", "role id or name filter")
	return cmd
}
