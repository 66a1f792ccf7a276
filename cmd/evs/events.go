package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evsched/internal/app"
	"evsched/internal/booking"
	"evsched/internal/calendar"
	"evsched/internal/domain"
	"evsched/internal/ics"
)

func eventCmd() *cobra.Command {
	ev := &cobra.Command{Use: "event", Short: "Book and manage events"}
	ev.AddCommand(eventListCmd())
	ev.AddCommand(eventCreateCmd())
	ev.AddCommand(eventUpdateCmd())
	ev.AddCommand(eventDeleteCmd())
	ev.AddCommand(eventExportCmd())
	return ev
}

// sliceFlags selects a calendar period around a reference date.
type sliceFlags struct {
	period string
	date   string
}

func (f *sliceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.period, "period", "all", "day, week, month or all")
	cmd.Flags().StringVar(&f.date, "date", "", "reference date YYYY-MM-DD (default today)")
}

func (f sliceFlags) apply(events []domain.Event, weekStart string) ([]domain.Event, error) {
	p, err := calendar.ParsePeriod(f.period)
	if err != nil {
		return nil, err
	}
	ref := time.Now()
	if f.date != "" {
		ref, err = time.ParseInLocation("2006-01-02", f.date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --date %q: %w", f.date, err)
		}
	}
	ws, err := calendar.ParseWeekday(weekStart)
	if err != nil {
		return nil, err
	}
	return calendar.Filter(events, p, ref, ws), nil
}

func eventListCmd() *cobra.Command {
	var slice sliceFlags
	var upcoming, grouped bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				var events []domain.Event
				var err error
				if upcoming {
					events, err = env.API.UpcomingEvents(ctx)
				} else {
					events, err = env.Shell.LoadEvents(ctx)
				}
				reportAlert(env.Shell.Alerts)
				if err != nil {
					return err
				}
				events, err = slice.apply(events, env.Config.Calendar.WeekStart)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					if grouped {
						return printJSON(calendar.GroupByDay(events))
					}
					return printJSON(events)
				}
				if grouped {
					for _, g := range calendar.GroupByDay(events) {
						fmt.Printf("\n%s\n", dayTitle(g.Date))
						renderEvents(g.Events)
					}
					return nil
				}
				renderEvents(events)
				return nil
			})
		},
	}
	slice.register(cmd)
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "only events dated today or later")
	cmd.Flags().BoolVar(&grouped, "by-day", false, "group the listing by day")
	return cmd
}

func dayTitle(date string) string {
	if date == "" {
		return "Undated"
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}

func renderEvents(events []domain.Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Date", "Time", "Title", "Location", "Place", "Guests", "Status"})
	for _, e := range events {
		guests := ""
		if e.Attendees != nil {
			guests = strconv.Itoa(*e.Attendees)
		}
		tw.AppendRow(table.Row{e.ID, e.Date, e.Time, e.Title, e.Location, e.Place, guests, e.Status})
	}
	tw.Render()
}

// eventFlags mirrors the event editor fields; only flags that were set
// override the pre-filled values on update.
type eventFlags struct {
	values booking.FormValues
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.values.Title, "title", "", "event type ("+fmt.Sprint(domain.EventTypes)+")")
	cmd.Flags().StringVar(&f.values.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.values.Date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.values.Time, "time", "", "time HH:MM")
	cmd.Flags().StringVar(&f.values.Place, "place", "", "district (see evs venues)")
	cmd.Flags().StringVar(&f.values.Location, "location", "", "venue (see evs venues --place)")
	cmd.Flags().StringVar(&f.values.FoodPreferences, "food", "", "food preference ("+fmt.Sprint(domain.FoodPreferences)+")")
	cmd.Flags().StringVar(&f.values.Attendees, "attendees", "", "expected guests")
	cmd.Flags().StringVar(&f.values.Status, "status", "", "pending, confirmed or cancelled")
}

func (f eventFlags) overlay(cmd *cobra.Command, base booking.FormValues) booking.FormValues {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("title", &base.Title, f.values.Title)
	set("description", &base.Description, f.values.Description)
	set("date", &base.Date, f.values.Date)
	set("time", &base.Time, f.values.Time)
	set("place", &base.Place, f.values.Place)
	set("location", &base.Location, f.values.Location)
	set("food", &base.FoodPreferences, f.values.FoodPreferences)
	set("attendees", &base.Attendees, f.values.Attendees)
	set("status", &base.Status, f.values.Status)
	return base
}

func eventCreateCmd() *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Book an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				if _, err := env.Shell.LoadEvents(ctx); err != nil {
					reportAlert(env.Shell.Alerts)
					return err
				}
				env.Shell.OpenCreate()
				return finishSubmit(env, env.Shell.SubmitEvent(ctx, f.values))
			})
		},
	}
	f.register(cmd)
	return cmd
}

func eventUpdateCmd() *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an event",
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
				if _, err := env.Shell.LoadEvents(ctx); err != nil {
					reportAlert(env.Shell.Alerts)
					return err
				}
				base, err := env.Shell.OpenEdit(id)
				if err != nil {
					return err
				}
				return finishSubmit(env, env.Shell.SubmitEvent(ctx, f.overlay(cmd, base)))
			})
		},
	}
	f.register(cmd)
	return cmd
}

func finishSubmit(env *app.Env, out booking.Outcome) error {
	reportAlert(env.Shell.Alerts)
	if viper.GetBool("json") {
		if err := printJSON(map[string]any{
			"outcome":     out.Kind,
			"event":       out.Event,
			"message":     out.Message,
			"suggestions": env.Shell.Suggestions(),
		}); err != nil {
			return err
		}
	} else if out.OK() {
		renderEvents([]domain.Event{out.Event})
	}
	if !out.OK() {
		return errors.New(out.Message)
	}
	return nil
}

func eventDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
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
				if _, err := env.Shell.LoadEvents(ctx); err != nil {
					reportAlert(env.Shell.Alerts)
					return err
				}
				env.Shell.DeleteEvent(ctx, id)
				err := confirm(env.Shell.Alerts)
				reportAlert(env.Shell.Alerts)
				return err
			})
		},
	}
}

func eventExportCmd() *cobra.Command {
	var slice sliceFlags
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				events, err := env.Shell.LoadEvents(ctx)
				if err != nil {
					reportAlert(env.Shell.Alerts)
					return err
				}
				events, err = slice.apply(events, env.Config.Calendar.WeekStart)
				if err != nil {
					return err
				}
				loc, err := env.Config.ExportLocation()
				if err != nil {
					return err
				}
				w := os.Stdout
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				skipped, err := ics.Write(w, events, ics.Options{
					Duration:     env.Config.Export.Duration,
					Location:     loc,
					CalendarName: env.Config.Export.CalendarName,
				})
				if err != nil {
					return err
				}
				for _, e := range skipped {
					fmt.Fprintf(os.Stderr, "skipped event %d (%s): no date\n", e.ID, e.Title)
				}
				if w != os.Stdout {
					fmt.Fprintf(os.Stderr, "wrote %d events to %s\n", len(events)-len(skipped), out)
				}
				return nil
			})
		},
	}
	slice.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
