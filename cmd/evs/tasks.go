package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evsched/internal/app"
	"evsched/internal/domain"
	"evsched/internal/tasks"
)

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage event tasks"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskUpdateCmd())
	t.AddCommand(taskDeleteCmd())
	t.AddCommand(taskToggleCmd())
	t.AddCommand(taskSyncCmd())
	t.AddCommand(taskDiscardCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var unsyncedOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, including local unsynced changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				entries, err := env.Shell.LoadTasks(ctx)
				reportAlert(env.Shell.Alerts)
				if err != nil {
					return err
				}
				if unsyncedOnly {
					var kept []tasks.Entry
					for _, e := range entries {
						if e.State == tasks.Unsynced {
							kept = append(kept, e)
						}
					}
					entries = kept
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				renderTasks(entries)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unsyncedOnly, "unsynced", false, "only changes not yet accepted by the server")
	return cmd
}

func renderTasks(entries []tasks.Entry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Due", "Assignee", "Event", "Done", "Sync"})
	for _, e := range entries {
		id := ""
		if e.Task.ID != 0 {
			id = strconv.FormatInt(e.Task.ID, 10)
		} else if e.LocalID != "" {
			id = "local:" + shortLocalID(e.LocalID)
		}
		done := ""
		if e.Task.Completed {
			done = "yes"
		}
		sync := string(e.State)
		if e.State == tasks.Unsynced && e.Cause != "" {
			sync += " (" + e.Cause + ")"
		}
		tw.AppendRow(table.Row{id, e.Task.Title, e.Task.Priority, e.Task.DueDate, e.Task.Assignee, e.Task.EventTitle, done, sync})
	}
	tw.Render()
}

type taskFlags struct {
	form tasks.Form
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.form.Title, "title", "", "title")
	cmd.Flags().StringVar(&f.form.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.form.DueDate, "due", "", "due date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.form.Priority, "priority", "", "low, medium or high (default medium)")
	cmd.Flags().StringVar(&f.form.Assignee, "assignee", "", "assignee")
	cmd.Flags().StringVar(&f.form.EventID, "event-id", "", "linked event id")
	cmd.Flags().BoolVar(&f.form.Completed, "completed", false, "mark completed")
}

func formOf(t domain.Task) tasks.Form {
	f := tasks.Form{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Assignee:    t.Assignee,
		Completed:   t.Completed,
	}
	if t.EventID != nil {
		f.EventID = strconv.FormatInt(*t.EventID, 10)
	}
	return f
}

func (f taskFlags) overlay(cmd *cobra.Command, base tasks.Form) tasks.Form {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("title", &base.Title, f.form.Title)
	set("description", &base.Description, f.form.Description)
	set("due", &base.DueDate, f.form.DueDate)
	set("priority", &base.Priority, f.form.Priority)
	set("assignee", &base.Assignee, f.form.Assignee)
	set("event-id", &base.EventID, f.form.EventID)
	if cmd.Flags().Changed("completed") {
		base.Completed = f.form.Completed
	}
	return base
}

func taskCreateCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				entry, err := env.Shell.SaveTask(ctx, f.form, nil)
				reportAlert(env.Shell.Alerts)
				if err != nil {
					return err
				}
				return printEntry(entry)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				current, err := env.API.ListTasks(ctx)
				if err != nil {
					return err
				}
				var existing *domain.Task
				for i := range current {
					if current[i].ID == id {
						existing = &current[i]
					}
				}
				if existing == nil {
					return fmt.Errorf("task %d not found", id)
				}
				entry, err := env.Shell.SaveTask(ctx, f.overlay(cmd, formOf(*existing)), existing)
				reportAlert(env.Shell.Alerts)
				if err != nil {
					return err
				}
				return printEntry(entry)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func printEntry(e tasks.Entry) error {
	if viper.GetBool("json") {
		return printJSON(e)
	}
	renderTasks([]tasks.Entry{e})
	return nil
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				env.Shell.DeleteTask(ctx, id)
				err := confirm(env.Shell.Alerts)
				reportAlert(env.Shell.Alerts)
				return err
			})
		},
	}
}

func taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				t, err := env.Shell.Tasks.Toggle(ctx, id)
				if err != nil {
					return err
				}
				return printEntry(tasks.Entry{Task: t, State: tasks.Synced})
			})
		},
	}
}

func taskSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay unsynced task changes to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				rep, err := env.Shell.Tasks.Sync(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					out := map[string]any{"synced": rep.Synced, "rejected": rep.Rejected, "remaining": rep.Remaining}
					if rep.Err != nil {
						out["error"] = rep.Err.Error()
					}
					return printJSON(out)
				}
				fmt.Printf("synced %d task change(s)\n", len(rep.Synced))
				for _, r := range rep.Rejected {
					fmt.Fprintf(os.Stderr, "dropped %q (local:%s): %s\n", r.Task.Title, shortLocalID(r.LocalID), r.Reason)
				}
				if rep.Err != nil {
					return fmt.Errorf("%d change(s) still unsynced: %w", rep.Remaining, rep.Err)
				}
				return nil
			})
		},
	}
}

func shortLocalID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func taskDiscardCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "discard [local-id]",
		Short: "Drop unsynced task changes without sending them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either a local id or --all")
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if all {
					n, err := env.Shell.Tasks.DiscardAll(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("discarded %d unsynced change(s)\n", n)
					return nil
				}
				p, err := env.Shell.Tasks.Discard(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("discarded %s of %q (local:%s)\n", p.Op, p.Task.Title, shortLocalID(p.LocalID))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "drop every unsynced change")
	return cmd
}
