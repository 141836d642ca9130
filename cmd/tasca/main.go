package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"tasca/internal/auth"
	"tasca/internal/backend"
	"tasca/internal/cache"
	"tasca/internal/cli"
	"tasca/internal/config"
	"tasca/internal/core"
	applog "tasca/internal/log"
	"tasca/internal/notify"
	"tasca/internal/services"
	"tasca/internal/store"
)

var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"register", "Create an account and sign in", runRegister},
	{"login", "Sign in with email and password", runLogin},
	{"biometric", "Sign in as the device owner", runBiometric},
	{"logout", "Sign out", runLogout},
	{"whoami", "Show the signed-in user", runWhoami},
	{"add", "Record an expense", runAdd},
	{"profile", "Show or edit your profile", runProfile},
	{"summary", "Show totals and insights", runSummary},
	{"report", "List expenses by category", runReport},
}

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return errUsage
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, stderr, applog.ComponentCLI)

	a, err := newApp(ctx, cfg, logger, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd.run(ctx, a, args[1:])
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tasca <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
}

// app holds what a single command needs.
type app struct {
	cfg       *config.Config
	logger    *applog.Logger
	store     *store.Store
	dashboard *services.Dashboard
	rawIn     io.Reader
	in        *bufio.Reader
	out       io.Writer
	errOut    io.Writer
	cleanup   backend.CleanupFunc
}

func newApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	var notifier notify.Notifier = notify.NewWriterNotifier(stdout)
	if result.Notifier != nil {
		notifier = notify.Multi{result.Notifier, notify.NewLogNotifier(logger)}
	}

	var creds auth.Credentials = auth.Insecure{}
	if cfg.VerifyPasswords {
		creds = auth.NewBcrypt()
	}

	st := store.New(result.Blobs,
		store.WithNotifier(notifier),
		store.WithCredentials(creds),
		store.WithLogger(logger))
	st.Start(ctx)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		dashboard: services.NewDashboard(cache.NewLRU[string, core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL), services.DefaultRecentLimit),
		rawIn:     stdin,
		in:        bufio.NewReader(stdin),
		out:       stdout,
		errOut:    stderr,
		cleanup:   result.Cleanup,
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()
	if err := st.WaitReady(waitCtx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Warn("Cleanup failed", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err)
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// readPassword prompts for a secret, hiding input on a terminal.
func (a *app) readPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	defer fmt.Fprintln(a.out)

	if f, ok := a.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// non-terminal input, e.g. tests and pipes
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) currentUser() (core.User, error) {
	u, ok := a.store.CurrentUser()
	if !ok {
		return core.User{}, core.ErrNoCurrentUser
	}
	return u, nil
}
