// Package main is the entrypoint for the pantrylink client CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pantrylink/pantrylink-go/internal/composer"
	"github.com/pantrylink/pantrylink-go/internal/config"
	"github.com/pantrylink/pantrylink-go/internal/httpclient"
	"github.com/pantrylink/pantrylink-go/internal/identity"
	"github.com/pantrylink/pantrylink-go/internal/inbox"
	"github.com/pantrylink/pantrylink-go/internal/logutil"
	"github.com/pantrylink/pantrylink-go/internal/pantry"
	"github.com/pantrylink/pantrylink-go/internal/share"
	"github.com/pantrylink/pantrylink-go/internal/shareserver"
	"github.com/pantrylink/pantrylink-go/internal/store"

	// Register store drivers
	_ "github.com/pantrylink/pantrylink-go/internal/store/json"
	_ "github.com/pantrylink/pantrylink-go/internal/store/sqlite"
)

const usage = `usage: pantrylink [flags] <command> [command flags]

commands:
  signup     register an account and sign in
  login      sign in with an existing account
  logout     clear the stored current user
  whoami     print the stored current user
  send       send a share request
  inbox      list pending received requests once
  respond    accept or reject a received request
  watch      poll the inbox until interrupted
  sent       list sent requests
  pantries   list pantries available to this user
  serve-dev  run the in-process development share service

flags:
  -config       path to TOML config file
  -server-url   share service base URL (overrides config)
  -data-dir     client data directory (overrides config)
  -store-driver current-user store driver: json or sqlite (overrides config)
  -log-level    debug, info, warn, or error (overrides config)
`

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	serverURL := flag.String("server-url", "", "Share service base URL (overrides config)")
	dataDir := flag.String("data-dir", "", "Client data directory (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: json or sqlite (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()

	cfg, err := config.Load(ctx, config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ServerURL:   serverURL,
			DataDir:     dataDir,
			StoreDriver: storeDriver,
			LogLevel:    logLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logutil.ParseLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	app := &app{cfg: cfg, logger: logger}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	if err := app.run(ctx, cmd, args); err != nil {
		fmt.Fprintln(os.Stderr, share.UserMessage(err))
		logger.Debug("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// app holds the wired client pieces behind each command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.cmdSignup(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "send":
		return a.cmdSend(ctx, args)
	case "inbox":
		return a.cmdInbox(ctx)
	case "respond":
		return a.cmdRespond(ctx, args)
	case "watch":
		return a.cmdWatch(ctx)
	case "sent":
		return a.cmdSent(ctx)
	case "pantries":
		return a.cmdPantries(ctx)
	case "serve-dev":
		return a.cmdServeDev(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// openStore initializes the configured driver. The caller closes it.
func (a *app) openStore(ctx context.Context) (store.Driver, store.IdentityStore, error) {
	drv, err := store.New(&store.DriverConfig{
		Driver:  a.cfg.Store.Driver,
		DataDir: a.cfg.DataDir,
		Options: a.cfg.Store.Options,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := drv.Init(ctx); err != nil {
		return nil, nil, err
	}

	ids, ok := drv.(store.IdentityStore)
	if !ok {
		drv.Close()
		return nil, nil, fmt.Errorf("driver %s does not support identity storage", drv.Name())
	}
	return drv, ids, nil
}

// service wires the share client over the persisted session.
func (a *app) service(ctx context.Context) (*share.Service, func(), error) {
	drv, ids, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	session := identity.NewSession(ids)
	hc := httpclient.New(&a.cfg.OutboundHTTP)
	svc := share.NewService(a.cfg.ServerURL, hc, session, a.logger)
	return svc, func() { drv.Close() }, nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	username := fs.String("username", "", "Account username (3-20 letters, digits, underscores)")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	fs.Parse(args)

	if !identity.ValidUsername(*username) {
		return fmt.Errorf("%w: username must be 3-20 letters, digits, or underscores", share.ErrInvalidInput)
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("%w: email and password are required", share.ErrInvalidInput)
	}

	hc := httpclient.New(&a.cfg.OutboundHTTP)
	body := map[string]string{"username": *username, "email": *email, "password": *password}
	data, resp, err := hc.PostJSON(ctx, a.cfg.ServerURL+"/signup", body, nil)
	if err != nil {
		return &share.NetworkError{Op: "signup", Err: err}
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return remoteDetail(resp.StatusCode, data)
	}

	return a.storeSignedIn(ctx, data, *username, *password)
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	fs.Parse(args)

	hc := httpclient.New(&a.cfg.OutboundHTTP)
	body := map[string]string{"email": *email, "password": *password}
	data, resp, err := hc.PostJSON(ctx, a.cfg.ServerURL+"/login", body, nil)
	if err != nil {
		return &share.NetworkError{Op: "login", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return remoteDetail(resp.StatusCode, data)
	}

	return a.storeSignedIn(ctx, data, "", *password)
}

// storeSignedIn persists the user record returned by signup/login together
// with the derived Basic credential.
func (a *app) storeSignedIn(ctx context.Context, data []byte, username, password string) error {
	var acct struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &acct); err != nil {
		return fmt.Errorf("malformed account response: %w", err)
	}
	if username == "" {
		username = acct.Username
	}

	drv, ids, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer drv.Close()

	session := identity.NewSession(ids)
	if err := session.SignIn(ctx, &identity.User{
		ID:        acct.ID,
		Username:  username,
		Email:     acct.Email,
		AuthToken: identity.BasicToken(username, password),
	}); err != nil {
		return err
	}

	fmt.Printf("signed in as %s\n", username)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	drv, ids, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer drv.Close()

	if err := identity.NewSession(ids).SignOut(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	drv, ids, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer drv.Close()

	user, err := identity.NewSession(ids).Current(ctx)
	if err != nil {
		return share.ErrUnauthenticated
	}
	fmt.Printf("%s <%s> (id %s)\n", user.Username, user.Email, user.ID)
	return nil
}

func (a *app) cmdSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Target username")
	permission := fs.String("permission", "view", "Permission to grant: view or edit")
	fs.Parse(args)

	svc, closeStore, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	form := composer.New(svc, a.logger)
	form.SetUsername(*to)
	form.SetPermission(share.Permission(*permission))
	if err := form.Submit(ctx); err != nil {
		return err
	}
	fmt.Println(form.Notice().Text)
	return nil
}

func (a *app) cmdInbox(ctx context.Context) error {
	svc, closeStore, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	requests, err := svc.ReceivedRequests(ctx)
	if err != nil {
		return err
	}
	printRequests(requests, true)
	return nil
}

func (a *app) cmdRespond(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("respond", flag.ExitOnError)
	id := fs.String("id", "", "Request id")
	action := fs.String("action", "", "accept or reject")
	fs.Parse(args)

	svc, closeStore, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := svc.Respond(ctx, *id, share.Action(*action))
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func (a *app) cmdWatch(ctx context.Context) error {
	svc, closeStore, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	interval := time.Duration(a.cfg.Inbox.PollIntervalSeconds) * time.Second
	ib := inbox.New(svc, interval,
		inbox.WithLogger(a.logger),
		inbox.WithOnChange(func(snap inbox.Snapshot) {
			switch snap.State {
			case inbox.StateLoaded:
				printRequests(snap.Requests, true)
			case inbox.StateError:
				fmt.Println("could not check for pending requests; retrying on next tick")
			}
		}),
	)

	if err := ib.Open(ctx); err != nil {
		return err
	}
	defer ib.Close()

	fmt.Printf("watching for share requests every %s (ctrl-c to stop)\n", interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func (a *app) cmdSent(ctx context.Context) error {
	svc, closeStore, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	requests, err := svc.SentRequests(ctx)
	if err != nil {
		return err
	}
	printRequests(requests, false)
	return nil
}

func (a *app) cmdPantries(ctx context.Context) error {
	svc, closeStore, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	options, err := pantry.NewSelector(svc).Options(ctx)
	if err != nil {
		return err
	}
	for _, opt := range options {
		view := pantry.Select(opt)
		mode := "editable"
		if view.ReadOnly {
			mode = "read-only"
		}
		fmt.Printf("%s (%s)\n", opt.Label, mode)
	}
	return nil
}

func (a *app) cmdServeDev(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve-dev", flag.ExitOnError)
	listen := fs.String("listen", ":8000", "Listen address")
	fs.Parse(args)

	srv := &http.Server{
		Addr:    *listen,
		Handler: shareserver.NewServer(a.logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.logger.Info("development share service listening", "addr", *listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printRequests(requests []share.Request, received bool) {
	if len(requests) == 0 {
		fmt.Println("no pending requests")
		return
	}
	for _, r := range requests {
		if received {
			fmt.Printf("%s  from %s (%s)  permission=%s  %s\n", r.ID, r.FromUsername, r.FromEmail, r.Permission, r.TimeAgo)
		} else {
			fmt.Printf("%s  to %s  permission=%s  status=%s\n", r.ID, r.ToUsername, r.Permission, r.Status)
		}
	}
}

// remoteDetail maps a non-2xx auth endpoint response to a RemoteError.
func remoteDetail(status int, body []byte) error {
	var eb struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		return &share.RemoteError{StatusCode: status, Detail: eb.Detail}
	}
	return &share.RemoteError{StatusCode: status}
}
