package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"evsched/internal/alert"
	"evsched/internal/api"
	"evsched/internal/apitest"
	"evsched/internal/app"
	"evsched/internal/config"
	"evsched/internal/db"
	"evsched/internal/domain"
	"evsched/internal/migrate"
	"evsched/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "evs",
	Short: "Event scheduler CLI",
	Long: `evs books events and tracks their tasks against the scheduling API.
- Events: one booking per venue, date and time; clashes are caught locally when visible and always by the server, which may suggest free venues.
- Tasks: to-dos optionally linked to an event. Changes the server cannot accept are kept locally as unsynced until 'evs task sync'.
- Workspace: the .evsched directory holds your session, the unsynced task queue and a journal of save outcomes ('evs log tail').
- Config: evsched.yml in the workspace ('evs config init'); flags and EVSCHED_* environment variables override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EVSCHED")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL (overrides evsched.yml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log requests and retries to stderr")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "confirm destructive operations without prompting")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("yes", rootCmd.PersistentFlags().Lookup("yes"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(venuesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveMockCmd())
}

func loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if password == "" {
					p, err := prompt("Password: ")
					if err != nil {
						return err
					}
					password = p
				}
				p, err := env.Shell.Login(ctx, username, password)
				reportAlert(env.Shell.Alerts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func registerCmd() *cobra.Command {
	var creds api.Credentials
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if creds.Password == "" {
					p, err := prompt("Password: ")
					if err != nil {
						return err
					}
					creds.Password = p
				}
				p, err := env.Shell.Register(ctx, creds)
				reportAlert(env.Shell.Alerts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&creds.Email, "email", "", "email address")
	cmd.Flags().StringVar(&creds.FullName, "full-name", "", "display name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if !env.Shell.Logout(ctx) {
					fmt.Println("not signed in")
					return nil
				}
				fmt.Println("signed out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, ok := env.Session.Profile()
				if !ok {
					return errors.New("not signed in; run evs login")
				}
				out := map[string]any{"username": p.Username, "fullName": p.FullName, "api": env.Config.API.BaseURL}
				if exp, ok := env.Session.Expiry(); ok {
					out["expires"] = exp.Format(time.RFC3339)
				}
				return printJSONOrTable(out)
			})
		},
	}
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show event and task counters with the next events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := requireSession(env); err != nil {
					return err
				}
				stats, err := env.API.DashboardStats(ctx)
				if err != nil {
					return err
				}
				upcoming, err := env.API.DashboardUpcomingEvents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"stats": stats, "upcoming": upcoming})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Total events", "Upcoming", "Pending tasks", "Completed tasks"})
				tw.AppendRow(table.Row{stats.TotalEvents, stats.UpcomingEvents, stats.PendingTasks, stats.CompletedTasks})
				tw.Render()
				renderEvents(upcoming)
				return nil
			})
		},
	}
}

func venuesCmd() *cobra.Command {
	var place string
	cmd := &cobra.Command{
		Use:   "venues",
		Short: "List districts, or the venues of one district",
		RunE: func(cmd *cobra.Command, args []string) error {
			if place == "" {
				if viper.GetBool("json") {
					return printJSON(domain.Places())
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"District", "Venues"})
				for _, p := range domain.Places() {
					tw.AppendRow(table.Row{p, len(domain.Venues(p))})
				}
				tw.Render()
				return nil
			}
			if !domain.KnownPlace(place) {
				return fmt.Errorf("unknown district %q; run evs venues for the list", place)
			}
			venues := domain.Venues(place)
			if viper.GetBool("json") {
				return printJSON(venues)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Venue", "Kind"})
			for _, v := range venues {
				tw.AppendRow(table.Row{v.Name, v.Kind})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&place, "place", "", "district")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage evsched.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default evsched.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			data := config.GenerateDefault(viper.GetString("base-url"))
			if _, err := config.FromYAML([]byte(data)); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Inspect the local journal",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var entryType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				entries, err := r.LatestJournal(ctx, n, entryType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Time", "Type", "Entity", "Actor", "Detail"})
				for _, e := range entries {
					detail, _ := json.Marshal(e.Payload)
					tw.AppendRow(table.Row{e.TS, e.Type, strings.TrimSuffix(e.EntityKind+" "+e.EntityID, " "), e.Actor, string(detail)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().StringVar(&entryType, "type", "", "entry type filter")
	return cmd
}

func serveMockCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run an in-memory scheduling API for local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("EVSCHED_JWT_SECRET")
			b := apitest.New(apitest.Config{BasePath: basePath, JWTSecret: secret, Logger: cliLogger()})
			srv, err := apitest.Listen(addr, b)
			if err != nil {
				return err
			}
			defer srv.Close()
			fmt.Printf("Serving mock scheduling API on %s (state is lost on exit)\n", srv.APIURL())
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

// --- helpers ---

func cliLogger() *log.Logger {
	if viper.GetBool("verbose") {
		return log.New(os.Stderr, "evs: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func loadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if u := viper.GetString("base-url"); u != "" {
		cfg.API.BaseURL = u
	}
	return cfg, cfg.Validate()
}

func withEnv(ctx context.Context, fn func(context.Context, *app.Env) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	env, err := app.Open(ctx, workspace, cfg, cliLogger())
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
}

func requireSession(env *app.Env) error {
	if !env.Session.Active() {
		return errors.New("not signed in; run evs login")
	}
	return nil
}

// reportAlert prints the visible notification to stderr and dismisses it.
func reportAlert(c *alert.Coordinator) {
	n, ok := c.Current()
	if !ok || n.NeedsConfirmation() {
		return
	}
	title := n.Title
	if title == "" {
		title = strings.ToUpper(string(n.Type))
	}
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", n.Type, title, n.Message)
	for _, d := range n.Details {
		fmt.Fprintf(os.Stderr, "  - %s\n", d)
	}
	_ = c.Dismiss()
}

// confirm resolves a pending confirmation alert from --yes or an interactive
// answer.
func confirm(c *alert.Coordinator) error {
	n, ok := c.Current()
	if !ok || !n.NeedsConfirmation() {
		return nil
	}
	if !viper.GetBool("yes") {
		answer, err := prompt(fmt.Sprintf("%s [y/N]: ", n.Message))
		if err != nil {
			return err
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			_ = c.Cancel()
			fmt.Println("cancelled")
			return nil
		}
	}
	return c.Confirm()
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
