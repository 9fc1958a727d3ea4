// Command sheetctl is a command-line client for the character sheet server.
//
//	sheetctl [-server URL] [-user U -password P] <command> [flags]
//
// Commands:
//
//	login                        check the credentials (registers the name on first use)
//	logout                       sign in, then end that session on the server
//	whoami                       print the user the session belongs to
//	passwd -new PASSWORD         change the password
//	pull -out FILE [-normalize]  download the saved sheet
//	push -in FILE                upload a sheet file
//	inspect -in FILE             print the values derived from a sheet file
//
// pull writes the stored document byte for byte. With -normalize it is
// rewritten in the editor's export form instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/client"
	"github.com/jackknife/charsheet/internal/editor"
	"github.com/jackknife/charsheet/internal/logger"
)

var errUsage = errors.New("usage: sheetctl [-server URL] [-user U -password P] login|logout|whoami|passwd|pull|push|inspect")

type app struct {
	server   string
	user     string
	password string
	out      io.Writer
	log      *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "sheetctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{out: out}
	fs := flag.NewFlagSet("sheetctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&a.server, "server", envOr("SHEETCTL_SERVER", "http://localhost:3000"), "server base URL")
	fs.StringVar(&a.user, "user", os.Getenv("SHEETCTL_USER"), "username")
	fs.StringVar(&a.password, "password", os.Getenv("SHEETCTL_PASSWORD"), "password")
	debug := fs.Bool("debug", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	log, err := logger.New(*debug)
	if err != nil {
		return err
	}
	defer log.Sync()
	a.log = log

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	log.Debug("running command", zap.String("command", cmd), zap.String("server", a.server))

	switch cmd {
	case "login":
		return a.login(ctx)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "passwd":
		return a.passwd(ctx, rest)
	case "pull":
		return a.pull(ctx, rest)
	case "push":
		return a.push(ctx, rest)
	case "inspect":
		return a.inspect(rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// session returns a client logged in with the configured credentials.
func (a *app) session(ctx context.Context) (*client.Client, error) {
	if a.user == "" || a.password == "" {
		return nil, errors.New("-user and -password are required")
	}
	c, err := client.New(a.server)
	if err != nil {
		return nil, err
	}
	if err := c.Login(ctx, a.user, a.password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

func (a *app) login(ctx context.Context) error {
	if _, err := a.session(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", a.user)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	c, err := a.session(ctx)
	if err != nil {
		return err
	}
	if err := c.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintf(a.out, "logged out %s\n", a.user)
	return nil
}

func (a *app) passwd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	next := fs.String("new", os.Getenv("SHEETCTL_NEW_PASSWORD"), "new password")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("passwd: %w", err)
	}
	if *next == "" {
		return errors.New("passwd: -new PASSWORD is required")
	}

	c, err := a.session(ctx)
	if err != nil {
		return err
	}
	if err := c.ChangePassword(ctx, *next); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	a.log.Debug("password changed", zap.String("user", a.user))
	fmt.Fprintf(a.out, "password changed for %s\n", a.user)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	c, err := a.session(ctx)
	if err != nil {
		return err
	}
	name, err := c.WhoAmI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, name)
	return nil
}

func fileFlag(cmd, name string, args []string) (string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String(name, "", "sheet file")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%s: %w", cmd, err)
	}
	if *path == "" {
		return "", fmt.Errorf("%s: -%s FILE is required", cmd, name)
	}
	return *path, nil
}

func (a *app) pull(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pull", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("out", "", "sheet file")
	normalize := fs.Bool("normalize", false, "rewrite in the editor's export form")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	if *path == "" {
		return errors.New("pull: -out FILE is required")
	}

	c, err := a.session(ctx)
	if err != nil {
		return err
	}
	data, err := c.Load(ctx)
	if err != nil {
		return fmt.Errorf("load sheet: %w", err)
	}

	if *normalize {
		vm := editor.New()
		if err := vm.ImportJSON(data); err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
		if data, err = vm.ExportJSON(); err != nil {
			return err
		}
	}
	if err := os.WriteFile(*path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %s\n", *path)
	return nil
}

func (a *app) push(ctx context.Context, args []string) error {
	path, err := fileFlag("push", "in", args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := editor.ParseDocument(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c, err := a.session(ctx)
	if err != nil {
		return err
	}
	if err := c.Save(ctx, data); err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	fmt.Fprintf(a.out, "uploaded %s\n", path)
	return nil
}

func (a *app) inspect(args []string) error {
	path, err := fileFlag("inspect", "in", args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	vm := editor.New()
	if err := vm.ImportJSON(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	printSummary(a.out, vm)
	return nil
}

func printSummary(w io.Writer, vm *editor.ViewModel) {
	kind := "mechanical"
	if vm.Display().Organic {
		kind = "organic"
	}
	fmt.Fprintf(w, "name:             %s\n", vm.Field(editor.FieldName))
	fmt.Fprintf(w, "race:             %s (%s)\n", vm.Field(editor.FieldRace), kind)
	fmt.Fprintf(w, "level:            %s\n", vm.Field(editor.FieldLevel))
	fmt.Fprintf(w, "points remaining: %d\n", vm.PointsRemaining())
	fmt.Fprintf(w, "wounds:           %d/%d\n", vm.Wounds.Checked(), vm.Wounds.Max())
	fmt.Fprintf(w, "stamina:          %d/%d\n", vm.Stamina.Checked(), vm.Stamina.Max())
	fmt.Fprintf(w, "dash:             %s\n", vm.Display().Dash)
	for _, t := range vm.Custom {
		fmt.Fprintf(w, "tracker %-9s %d/%d\n", t.Name+":", t.Checked(), t.Max())
	}
	if effects := vm.StatusEffectsHeader(); len(effects) > 0 {
		fmt.Fprintf(w, "status effects:   %s\n", strings.Join(effects, ", "))
	}
}
