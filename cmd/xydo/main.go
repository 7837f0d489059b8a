package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"xydo.org/internal/api"
	"xydo.org/internal/auth"
	"xydo.org/internal/config"
	"xydo.org/internal/kv"
	"xydo.org/internal/obs"
	"xydo.org/internal/session"
)

var version = "0.1.0"

// errShown marks a failure the page view already printed.
var errShown = errors.New("shown")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type app struct {
	out    io.Writer
	errOut io.Writer
	sess   *session.Store
	client *api.Client
	guard  *auth.Guard
	nav    *printNavigator
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "xydo: load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("xydo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		apiURL  = fs.String("api", cfg.APIURL, "API base URL")
		driver  = fs.String("store", cfg.Store, "session storage: sqlite, postgres, redis or memory")
		dsn     = fs.String("dsn", cfg.StoreDSN, "session storage DSN")
		verbose = fs.Bool("v", false, "log every request to stderr")
		metrics = fs.Bool("metrics", false, "print client metrics to stderr on exit")
	)
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	obs.SetOutput(stderr)
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	if *verbose {
		obs.SetLevel(obs.LevelDebug)
	}
	obs.Init()
	obs.InitBuildInfo("xydo", version)

	storage, err := kv.Open(ctx, kv.Options{Driver: *driver, DSN: *dsn, Prefix: cfg.StorePrefix})
	if err != nil {
		fmt.Fprintf(stderr, "xydo: open %s storage: %v\n", *driver, err)
		return 1
	}
	defer storage.Close()

	sess := session.NewStore(storage)
	navigator := &printNavigator{w: stdout}
	a := &app{
		out:    stdout,
		errOut: stderr,
		sess:   sess,
		client: api.New(*apiURL, sess),
		guard:  auth.NewGuard(sess, navigator),
		nav:    navigator,
	}
	if *metrics {
		defer func() {
			if err := obs.WriteText(stderr); err != nil {
				fmt.Fprintf(stderr, "xydo: metrics: %v\n", err)
			}
		}()
	}

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if !errors.Is(err, errShown) {
			fmt.Fprintf(stderr, "xydo: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "dashboard":
		return a.dashboard(ctx)
	case "api":
		return a.raw(ctx, args)
	case "users", "teams", "content", "videos", "messages", "feedback":
		return a.resource(ctx, cmd, args)
	case "version":
		fmt.Fprintln(a.out, version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (run xydo -h)", cmd)
	}
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprint(w, `usage: xydo [flags] <command> [args]

commands:
  login -email E -password P [-admin]
  register -name N -email E -password P -confirm P [-role R] [-team T]
  logout
  whoami
  dashboard
  users    list | get ID | update ID JSON | delete ID
  teams    list | get ID | create JSON | update ID JSON | delete ID
  content  list [-week N] | get ID | create JSON | update ID JSON | delete ID
  videos   list [key=value...] | get ID | create JSON | update ID JSON | delete ID
  messages list [key=value...] | get ID | create JSON | update ID JSON | delete ID
           reply ID TEXT | like ID | pin ID
  feedback submit JSON | list
  api METHOD PATH [JSON]
  version

flags:
`)
	fs.PrintDefaults()
}
