package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintdesk/internal/app"
	"sprintdesk/internal/board"
	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize))
			if err != nil {
				return err
			}
			c := a.Board.Projects
			items, err := runList(cmd.Context(), c, board.ProjectFilter{Search: f.search, Status: f.status}, f)
			if err != nil {
				return err
			}
			d := a.Dict
			return renderPage(d, c, items,
				table.Row{"ID", d.T("labels.project.key"), d.T("labels.project.name"), d.T("labels.project.status")},
				func(p domain.Project) table.Row { return table.Row{p.ID, p.Key, p.Name, p.Status} })
		},
	}
	f.bind(cmd, "name, key, status, created")
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var draft board.ProjectDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			d := a.Board.ProjectDialog
			d.OpenCreate()
			if err := d.Edit(func(p *board.ProjectDraft) {
				p.Name, p.Key, p.Description = draft.Name, draft.Key, draft.Description
				if draft.Status != "" {
					p.Status = draft.Status
				}
			}); err != nil {
				return err
			}
			if err := submitDialog(cmd, d); err != nil {
				return err
			}
			return printCreated(a.Board.Projects.Items())
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "project name")
	cmd.Flags().StringVar(&draft.Key, "key", "", "short key, e.g. WEB")
	cmd.Flags().StringVar(&draft.Description, "description", "", "description")
	cmd.Flags().StringVar(&draft.Status, "status", "", "active or archived")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project with its tasks and sprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !a.Board.DeleteProject(cmd.Context(), args[0]) {
				return errReported
			}
			return nil
		},
	}
}

// printCreated prints the entity a dialog just reconciled into its list.
func printCreated[E domain.Entity](items []E) error {
	if len(items) == 0 {
		return nil
	}
	e := items[len(items)-1]
	if viper.GetBool("json") {
		return printJSON(e)
	}
	fmt.Println(e.EntityID())
	return nil
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks of the active project"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskUpdateCmd())
	t.AddCommand(taskDeleteCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var f listFlags
	var tf board.TaskFilter
	var dueFrom, dueTo string
	var serverPaging bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize), withServerPaging(serverPaging))
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			from, err := parseDate("due-from", dueFrom)
			if err != nil {
				return err
			}
			to, err := parseDate("due-to", dueTo)
			if err != nil {
				return err
			}
			tf.Search, tf.Status = f.search, f.status
			if from != nil {
				tf.DueFrom = *from
			}
			if to != nil {
				tf.DueTo = *to
			}
			c := a.Board.Tasks
			items, err := runList(cmd.Context(), c, tf, f)
			if err != nil {
				return err
			}
			return renderTasks(cmd.Context(), a, c, items)
		},
	}
	f.bind(cmd, "title, status, priority, due, created, updated")
	cmd.Flags().IntVar(&tf.Priority, "priority", 0, "priority filter (1-5)")
	cmd.Flags().StringVar(&tf.AssigneeID, "assignee", "", "assignee id filter")
	cmd.Flags().StringVar(&tf.SprintID, "sprint", "", "sprint id filter")
	cmd.Flags().StringVar(&dueFrom, "due-from", "", "due on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dueTo, "due-to", "", "due on or before (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&serverPaging, "server-paging", false, "page on the server")
	return cmd
}

func renderTasks(ctx context.Context, a *app.App, c *board.TaskList, items []domain.Task) error {
	d := a.Dict
	// Assignee names resolve through the store once members are loaded.
	if !viper.GetBool("json") {
		a.Board.Members.Refresh(ctx, board.MemberFilter{})
	}
	return renderPage(d, c, items,
		table.Row{d.T("labels.task.id"), d.T("labels.task.title"), d.T("labels.task.status"), d.T("labels.task.priority"), d.T("labels.task.assignee"), d.T("labels.task.due")},
		func(t domain.Task) table.Row {
			prio := ""
			if t.Priority != nil {
				prio = strconv.Itoa(*t.Priority)
			}
			assignee := ""
			if t.AssigneeID != nil {
				assignee = a.Store.MemberName(*t.AssigneeID)
			}
			return table.Row{t.ID, t.Title, d.T("status." + t.Status), prio, assignee, formatDate(t.DueDate)}
		})
}

// taskFlags collects the editable task fields; only changed flags apply.
type taskFlags struct {
	title       string
	description string
	status      string
	priority    int
	assignee    string
	sprint      string
	due         string
}

func (tf *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tf.title, "title", "", "title")
	cmd.Flags().StringVar(&tf.description, "description", "", "description")
	cmd.Flags().StringVar(&tf.status, "status", "", "todo, in_progress, review or done")
	cmd.Flags().IntVar(&tf.priority, "priority", 0, "priority 1-5 (0 clears)")
	cmd.Flags().StringVar(&tf.assignee, "assignee", "", "assignee id (empty clears)")
	cmd.Flags().StringVar(&tf.sprint, "sprint", "", "sprint id (empty clears)")
	cmd.Flags().StringVar(&tf.due, "due", "", "due date YYYY-MM-DD (empty clears)")
}

func (tf taskFlags) apply(cmd *cobra.Command, d *board.TaskDialog) error {
	due, err := parseDate("due", tf.due)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	return d.Edit(func(t *board.TaskDraft) {
		if changed("title") {
			t.Title = tf.title
		}
		if changed("description") {
			t.Description = tf.description
		}
		if changed("status") {
			t.Status = tf.status
		}
		if changed("priority") {
			t.Priority = nil
			if tf.priority != 0 {
				p := tf.priority
				t.Priority = &p
			}
		}
		if changed("assignee") {
			t.AssigneeID = tf.assignee
		}
		if changed("sprint") {
			t.SprintID = tf.sprint
		}
		if changed("due") {
			t.DueDate = due
		}
	})
}

func taskCreateCmd() *cobra.Command {
	var tf taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			d := a.Board.TaskDialog
			d.OpenCreate()
			if err := tf.apply(cmd, d); err != nil {
				return err
			}
			if err := submitDialog(cmd, d); err != nil {
				return err
			}
			return printCreated(a.Board.Tasks.Items())
		},
	}
	tf.bind(cmd)
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var tf taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task; unspecified fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			c := a.Board.Tasks
			if !c.Refresh(cmd.Context(), board.TaskFilter{}) {
				return errReported
			}
			task, ok := find(c.Items(), args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			d := a.Board.TaskDialog
			d.OpenEdit(task)
			if err := tf.apply(cmd, d); err != nil {
				return err
			}
			if err := submitDialog(cmd, d); err != nil {
				return err
			}
			updated, _ := find(c.Items(), args[0])
			if viper.GetBool("json") {
				return printJSON(updated)
			}
			fmt.Println(updated.ID)
			return nil
		},
	}
	tf.bind(cmd)
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			if !a.Board.DeleteTask(cmd.Context(), args[0]) {
				return errReported
			}
			return nil
		},
	}
}

func find[E domain.Entity](items []E, id string) (E, bool) {
	for _, it := range items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero E
	return zero, false
}

func sprintCmd() *cobra.Command {
	s := &cobra.Command{Use: "sprint", Short: "Manage sprints of the active project"}
	s.AddCommand(sprintListCmd())
	s.AddCommand(sprintCreateCmd())
	s.AddCommand(sprintDeleteCmd())
	return s
}

func sprintListCmd() *cobra.Command {
	var f listFlags
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize))
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			sf := board.SprintFilter{Search: f.search, Status: f.status}
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			if start != nil {
				sf.From = *start
			}
			if end != nil {
				sf.To = *end
			}
			c := a.Board.Sprints
			items, err := runList(cmd.Context(), c, sf, f)
			if err != nil {
				return err
			}
			d := a.Dict
			return renderPage(d, c, items,
				table.Row{"ID", d.T("labels.sprint.name"), d.T("labels.sprint.status"), d.T("labels.sprint.start"), d.T("labels.sprint.end")},
				func(s domain.Sprint) table.Row {
					return table.Row{s.ID, s.Name, s.Status, formatDate(&s.StartDate), formatDate(&s.EndDate)}
				})
		},
	}
	f.bind(cmd, "name, status, start, end")
	cmd.Flags().StringVar(&from, "from", "", "starting on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "starting on or before (YYYY-MM-DD)")
	return cmd
}

func sprintCreateCmd() *cobra.Command {
	var name, goal, status, start, end string
	var members []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a sprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			startDate, err := parseDate("start", start)
			if err != nil {
				return err
			}
			endDate, err := parseDate("end", end)
			if err != nil {
				return err
			}
			d := a.Board.SprintDialog
			d.OpenCreate()
			_ = form.SetField(d, board.SprintName, name)
			_ = form.SetField(d, board.SprintGoal, goal)
			if status != "" {
				_ = form.SetField(d, board.SprintStatus, status)
			}
			_ = form.SetField(d, board.SprintStart, startDate)
			_ = form.SetField(d, board.SprintEnd, endDate)
			_ = form.SetField(d, board.SprintMembers, members)
			if err := submitDialog(cmd, d); err != nil {
				return err
			}
			return printCreated(a.Board.Sprints.Items())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "sprint name")
	cmd.Flags().StringVar(&goal, "goal", "", "sprint goal")
	cmd.Flags().StringVar(&status, "status", "", "planned, active or closed")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&members, "member", nil, "member id (repeatable)")
	return cmd
}

func sprintDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sprint; its tasks move to the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			if !a.Board.DeleteSprint(cmd.Context(), args[0]) {
				return errReported
			}
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	r := &cobra.Command{Use: "report", Short: "Project reports"}
	r.AddCommand(reportSummaryCmd())
	r.AddCommand(reportActivityCmd())
	return r
}

func reportSummaryCmd() *cobra.Command {
	var sprint string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Task counts by status, with overdue and completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			c := a.Board.Tasks
			if !c.Refresh(cmd.Context(), board.TaskFilter{SprintID: sprint}) {
				return errReported
			}
			sum := board.Summarize(c.Visible(), time.Now())
			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"total":      sum.Total,
					"by_status":  sum.ByStatus,
					"overdue":    sum.Overdue,
					"completion": sum.Completion(),
				})
			}
			d := a.Dict
			tw := newTable()
			tw.AppendHeader(table.Row{d.T("labels.report.status"), d.T("labels.report.count")})
			for _, row := range sum.StatusRows() {
				tw.AppendRow(table.Row{d.T("status." + row.Status), row.Count})
			}
			tw.AppendFooter(table.Row{d.T("labels.report.total"), sum.Total})
			tw.Render()
			fmt.Printf("%s: %d\n%s: %s\n", d.T("labels.report.overdue"), sum.Overdue, d.T("labels.report.completion"), percent(sum.Completion()))
			return nil
		},
	}
	cmd.Flags().StringVar(&sprint, "sprint", "", "only tasks of this sprint")
	return cmd
}

func reportActivityCmd() *cobra.Command {
	var f listFlags
	var kind string
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Recent changes in the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withPageSize(f.pageSize))
			if err != nil {
				return err
			}
			if _, err := a.RequireProject(); err != nil {
				return err
			}
			if f.sort == "" && !cmd.Flags().Changed("desc") {
				f.desc = true
			}
			c := a.Board.Activity
			items, err := runList(cmd.Context(), c, board.ActivityFilter{Search: f.search, EntityKind: kind}, f)
			if err != nil {
				return err
			}
			d := a.Dict
			return renderPage(d, c, items,
				table.Row{d.T("labels.activity.ts"), d.T("labels.activity.type"), d.T("labels.activity.entity"), d.T("labels.activity.actor")},
				func(ev domain.Activity) table.Row {
					return table.Row{ev.TS.Local().Format(time.DateTime), ev.Type, ev.EntityKind + " " + ev.TargetID, ev.ActorID}
				})
		},
	}
	f.bind(cmd, "ts, type")
	cmd.Flags().StringVar(&kind, "kind", "", "entity kind filter (task, sprint, project)")
	return cmd
}
