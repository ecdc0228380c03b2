package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MarkLin1511/MedBridge/internal/config"
	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
	"github.com/MarkLin1511/MedBridge/internal/session"
	"github.com/MarkLin1511/MedBridge/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medbridge",
		Short:         "MedBridge patient health records CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(portalsCmd())
	rootCmd.AddCommand(integrationsCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(changePasswordCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs: config, logger, the API client,
// and the session restored from the token file.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	bus     *events.Bus
	client  *api.Client
	session *session.Store
	stop    func()
}

func newApp() (*app, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	logger = logger.Level(zerolog.WarnLevel)
	if os.Getenv("MEDBRIDGE_DEBUG") != "" {
		logger = logger.Level(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bus := events.NewBus()
	client := api.NewClient(api.ClientConfig{
		BaseURL: cfg.APIURL,
		Logger:  logger,
		Bus:     bus,
	})
	tokens := session.NewFileTokenStore(cfg.TokenFile)
	nav := session.NavigatorFunc(func(route string) {})
	sess := session.NewStore(client, tokens, nav, bus, logger)

	// Toasts the stores publish are the CLI's user-facing output for
	// mutations, so print them as they arrive.
	toasts, unsub := bus.Subscribe(events.TopicToast)
	done := make(chan struct{})
	go func() {
		for evt := range toasts {
			if evt.Level == events.ToastError {
				fmt.Fprintln(os.Stderr, "✗", evt.Message)
			} else {
				fmt.Println("✓", evt.Message)
			}
		}
		close(done)
	}()

	return &app{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		client:  client,
		session: sess,
		stop: func() {
			sess.Close()
			unsub()
			<-done
		},
	}, nil
}

// requireAuth restores the saved session and fails if there is none.
func (a *app) requireAuth(ctx context.Context) error {
	a.session.Restore(ctx)
	if a.session.State() != session.Authenticated {
		return fmt.Errorf("not logged in; run `medbridge login` first")
	}
	return nil
}

func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.stop()
		return run(cmd.Context(), a, cmd, args)
	}
}

func withSession(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if err := a.requireAuth(ctx); err != nil {
			return err
		}
		return run(ctx, a, cmd, args)
	})
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func argID(args []string) (int, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

// runConfirmed drives a store's two-step destructive confirm from the CLI.
// The first step only arms the confirm; without --confirm the command stops
// there, so the action never runs on a single unconfirmed invocation.
func runConfirmed(out io.Writer, confirm bool, action string, step func()) {
	step()
	if !confirm {
		fmt.Fprintf(out, "This will %s. Re-run with --confirm to proceed.\n", action)
		return
	}
	step()
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				var err error
				if password, err = readPassword("Password: "); err != nil {
					return err
				}
			}
			if err := a.session.Login(ctx, email, password); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", a.session.User().FullName(), a.session.User().PatientID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func signupCmd() *cobra.Command {
	var req api.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if req.Email == "" || req.FirstName == "" || req.LastName == "" {
				return fmt.Errorf("--email, --first-name and --last-name are required")
			}
			if req.Password == "" {
				var err error
				if req.Password, err = readPassword("Password: "); err != nil {
					return err
				}
			}
			reqs := session.PasswordChecklist(req.Password)
			if !session.ChecklistMet(reqs) {
				for _, r := range reqs {
					mark := "✓"
					if !r.Met {
						mark = "✗"
					}
					fmt.Printf("  %s %s\n", mark, r.Label)
				}
				return fmt.Errorf("password does not meet the requirements above")
			}
			if err := a.session.Signup(ctx, req); err != nil {
				return err
			}
			fmt.Printf("Welcome, %s. Your patient id is %s.\n", a.session.User().FullName(), a.session.User().PatientID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.DOB, "dob", "", "date of birth (YYYY-MM-DD)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the saved session",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			a.session.Logout()
			fmt.Println("Logged out.")
			return nil
		}),
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			u := a.session.User()
			fmt.Printf("%s <%s>\n", u.FullName(), u.Email)
			fmt.Printf("Patient ID: %s  Role: %s\n", u.PatientID, u.Role)
			if claims, err := session.ParseClaims(a.session.Token()); err == nil {
				fmt.Printf("Session expires: %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		}),
	}
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the health dashboard",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			d, err := a.client.Dashboard(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s  (%s)\n", d.Patient.Name, d.Patient.PatientID)
			if d.Patient.Wearable != nil {
				fmt.Printf("Wearable: %s\n", *d.Patient.Wearable)
			}
			if len(d.Patient.ConnectedPortals) > 0 {
				fmt.Println("Portals:")
				for _, p := range d.Patient.ConnectedPortals {
					fmt.Println("  -", p)
				}
			}
			if len(d.Vitals) > 0 {
				fmt.Println("\nVitals:")
				for _, v := range d.Vitals {
					fmt.Printf("  %-16s %-10s %s (%s)\n", v.Label, v.Value, v.Trend, v.Period)
				}
			}
			if len(d.RecentLabs) > 0 {
				fmt.Println("\nRecent labs:")
				for _, l := range d.RecentLabs {
					fmt.Printf("  %s  %-28s %6.1f %-6s [%s]  %s\n", l.Date, l.Test, l.Value, l.Unit, l.Status, l.Source)
				}
			}
			if len(d.AuditLog) > 0 {
				fmt.Println("\nRecent activity:")
				for _, e := range d.AuditLog {
					fmt.Printf("  %-14s %s (%s)\n", e.When, e.Action, e.By)
				}
			}
			return nil
		}),
	}
}

func recordsCmd() *cobra.Command {
	var typ, search string
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List medical records",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			recs, err := a.client.Records(ctx, api.RecordsQuery{Type: typ, Search: search, Skip: skip, Limit: limit})
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No records found.")
				return nil
			}
			for _, r := range recs {
				fmt.Printf("[%d] %s  %-10s %s\n", r.ID, r.Date, r.Type, r.Title)
				fmt.Printf("      %s — %s\n", r.Provider, r.Source)
				for _, f := range r.Flags {
					fmt.Println("      ⚑", f)
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&typ, "type", "all", "filter: lab, medication, imaging, visit, wearable, all")
	cmd.Flags().StringVar(&search, "search", "", "search title, description, provider")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of records to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to return (0 = server default)")
	return cmd
}

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage provider access",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			p, err := a.client.Providers(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Connected:")
			for _, c := range p.Connected {
				fmt.Printf("  [%d] %s — %s, %s (last access %s, %s)\n", c.ID, c.Name, c.Specialty, c.Facility, c.LastAccess, c.AccessLevel)
			}
			if len(p.Pending) > 0 {
				fmt.Println("Pending requests:")
				for _, c := range p.Pending {
					fmt.Printf("  [%d] %s — %s, %s (requested %s on %s)\n", c.ID, c.Name, c.Specialty, c.Facility, c.RequestedAccess, c.RequestDate)
				}
			}
			return nil
		}),
	}

	action := func(use, short string, run func(ctx context.Context, st *store.ProvidersStore, id int)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				id, err := argID(args)
				if err != nil {
					return err
				}
				st := store.NewProvidersStore(a.client, a.bus, a.logger)
				run(ctx, st, id)
				return nil
			}),
		}
	}
	cmd.AddCommand(action("approve", "Approve a pending access request", func(ctx context.Context, st *store.ProvidersStore, id int) {
		st.Approve(ctx, id)
	}))
	cmd.AddCommand(action("deny", "Deny a pending access request", func(ctx context.Context, st *store.ProvidersStore, id int) {
		st.Deny(ctx, id)
	}))

	var confirm bool
	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a provider's access",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := argID(args)
			if err != nil {
				return err
			}
			st := store.NewProvidersStore(a.client, a.bus, a.logger)
			runConfirmed(cmd.OutOrStdout(), confirm, fmt.Sprintf("revoke access for provider %d", id), func() {
				st.Revoke(ctx, id)
			})
			return nil
		}),
	}
	revoke.Flags().BoolVar(&confirm, "confirm", false, "confirm the revoke")
	cmd.AddCommand(revoke)
	return cmd
}

func portalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portals",
		Short: "Manage portal connections",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			portals, err := a.client.Portals(ctx)
			if err != nil {
				return err
			}
			for _, p := range portals {
				fmt.Printf("  [%d] %-24s %-10s %s\n", p.ID, p.Name, p.Status, p.Doctors)
			}
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "connect <id>",
		Short: "Connect a portal",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := argID(args)
			if err != nil {
				return err
			}
			store.NewPortalsStore(a.client, a.bus, a.logger).Connect(ctx, id)
			return nil
		}),
	})
	var confirm bool
	disconnect := &cobra.Command{
		Use:   "disconnect <id>",
		Short: "Disconnect a portal",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := argID(args)
			if err != nil {
				return err
			}
			st := store.NewPortalsStore(a.client, a.bus, a.logger)
			runConfirmed(cmd.OutOrStdout(), confirm, fmt.Sprintf("disconnect portal %d", id), func() {
				st.Disconnect(ctx, id)
			})
			return nil
		}),
	}
	disconnect.Flags().BoolVar(&confirm, "confirm", false, "confirm the disconnect")
	cmd.AddCommand(disconnect)
	return cmd
}

func integrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrations",
		Short: "Manage SMART on FHIR EHR connections",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			conns, err := a.client.FHIRConnections(ctx)
			if err != nil {
				return err
			}
			if len(conns) == 0 {
				fmt.Println("No EHR connections.")
			}
			for _, c := range conns {
				last := "never"
				if c.LastSyncedAt != nil {
					last = *c.LastSyncedAt
				}
				fmt.Printf("  [%d] %-10s %-8s last synced %s\n", c.ID, c.EHRName, c.Status, last)
				fmt.Printf("      %s\n", c.FHIRBaseURL)
			}
			history, err := a.client.FHIRSyncHistory(ctx)
			if err != nil {
				return err
			}
			if len(history) > 0 {
				fmt.Println("Sync history:")
				for _, h := range history {
					fmt.Printf("  %-14s %-10s %s [%s]\n", h.When, h.EHRName, h.Action, h.Status)
				}
			}
			return nil
		}),
	}

	var fhirURL string
	connect := &cobra.Command{
		Use:   "connect <ehr>",
		Short: "Get the OAuth authorize URL for an EHR (epic, cerner, generic)",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			st := store.NewIntegrationsStore(a.client, a.bus, a.logger)
			authorizeURL, err := st.Connect(ctx, args[0], fhirURL)
			if err != nil {
				return err
			}
			fmt.Println("Open this URL in your browser to authorize:")
			fmt.Println(" ", authorizeURL)
			return nil
		}),
	}
	connect.Flags().StringVar(&fhirURL, "fhir-url", "", "base FHIR URL (required for generic)")
	cmd.AddCommand(connect)

	cmd.AddCommand(&cobra.Command{
		Use:   "sync <id>",
		Short: "Re-sync data from a connected EHR",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := argID(args)
			if err != nil {
				return err
			}
			store.NewIntegrationsStore(a.client, a.bus, a.logger).Sync(ctx, id)
			return nil
		}),
	})
	var confirm bool
	disconnect := &cobra.Command{
		Use:   "disconnect <id>",
		Short: "Remove an EHR connection",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := argID(args)
			if err != nil {
				return err
			}
			st := store.NewIntegrationsStore(a.client, a.bus, a.logger)
			runConfirmed(cmd.OutOrStdout(), confirm, fmt.Sprintf("remove EHR connection %d", id), func() {
				st.Disconnect(ctx, id)
			})
			return nil
		}),
	}
	disconnect.Flags().BoolVar(&confirm, "confirm", false, "confirm the removal")
	cmd.AddCommand(disconnect)
	return cmd
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			notes, err := a.client.Notifications(ctx)
			if err != nil {
				return err
			}
			for _, n := range notes {
				marker := " "
				if !n.Read {
					marker = "*"
				}
				fmt.Printf("%s [%d] %s — %s\n", marker, n.ID, n.Title, n.Message)
			}
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification read",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := argID(args)
			if err != nil {
				return err
			}
			st := store.NewNotificationsStore(a.client, a.bus, a.logger)
			st.MarkRead(ctx, id)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			st := store.NewNotificationsStore(a.client, a.bus, a.logger)
			st.Load(ctx)
			st.MarkAllRead(ctx)
			return nil
		}),
	})
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show account settings",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.client.GetSettings(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}),
	}

	var firstName, lastName, email, dob string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			st := store.NewSettingsStore(a.client, a.bus, a.logger)
			st.Load(ctx)
			st.UpdateProfile(func(p *api.ProfileSettings) {
				if firstName != "" {
					p.FirstName = firstName
				}
				if lastName != "" {
					p.LastName = lastName
				}
				if email != "" {
					p.Email = email
				}
				if dob != "" {
					p.DOB = &dob
				}
			})
			if !st.Dirty() {
				fmt.Println("Nothing to update.")
				return nil
			}
			return st.Save(ctx)
		}),
	}
	set.Flags().StringVar(&firstName, "first-name", "", "first name")
	set.Flags().StringVar(&lastName, "last-name", "", "last name")
	set.Flags().StringVar(&email, "email", "", "email")
	set.Flags().StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.AddCommand(set)
	return cmd
}

func changePasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the account password",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			old, err := readPassword("Current password: ")
			if err != nil {
				return err
			}
			newPw, err := readPassword("New password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword("Confirm new password: ")
			if err != nil {
				return err
			}
			st := store.NewSettingsStore(a.client, a.bus, a.logger)
			return st.ChangePassword(ctx, old, newPw, confirm)
		}),
	}
}

func exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download your records as a FHIR R4 bundle",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			exp := store.NewExporter(a.client, a.bus, a.logger, dir)
			path, err := exp.Export(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Saved to", path)
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the export into")
	return cmd
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Show the access audit trail",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			entries, err := a.client.AuditLog(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%-14s %s (%s)\n", e.When, e.Action, e.By)
			}
			return nil
		}),
	}
}
