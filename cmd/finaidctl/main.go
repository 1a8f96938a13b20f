// finaidctl is a command-line client for the Fin(Ai)d Hub API.
//
// It keeps one session on disk (see --session) and routes a login to the
// dashboard of the role the operator selected, refusing the login when the
// account holds a different role.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/finaidhub/hub/pkg/client"
)

const usage = `usage: finaidctl <command> [flags]

commands:
  login    authenticate and store a session (--role is required)
  whoami   show the identity of the stored session
  users    list identities (admins only)
  logout   revoke the stored token and remove the session
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals are accepted by every command.
type globals struct {
	server  string
	session string
}

func (g *globals) addFlags(fs *pflag.FlagSet) {
	server := os.Getenv("FINAID_HUB_URL")
	if server == "" {
		server = "http://localhost:8080"
	}
	fs.StringVar(&g.server, "server", server, "API base URL (env FINAID_HUB_URL)")
	fs.StringVar(&g.session, "session", "", "session file (default: <user config dir>/finaid-hub/session.json)")
}

func (g *globals) router() (*client.RoleRouter, *client.Client, error) {
	path := g.session
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return nil, nil, fmt.Errorf("resolve session path: %w", err)
		}
	}
	api := client.New(g.server)
	return client.NewRoleRouter(api, client.NewFileStore(path)), api, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return nil
	}

	switch args[0] {
	case "login":
		return runLogin(ctx, args[1:], stdout, stderr)
	case "whoami":
		return runWhoami(ctx, args[1:], stdout, stderr)
	case "users":
		return runUsers(ctx, args[1:], stdout, stderr)
	case "logout":
		return runLogout(ctx, args[1:], stdout, stderr)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newFlagSet(name string, stderr io.Writer) (*pflag.FlagSet, *globals) {
	fs := pflag.NewFlagSet("finaidctl "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	g := &globals{}
	g.addFlags(fs)
	return fs, g
}

func runLogin(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("login", stderr)
	username := fs.StringP("username", "u", "", "username or email")
	role := fs.StringP("role", "r", "", "role to sign in as: super_admin, admin, accounting_firm_owner, accountant")
	passwordFile := fs.String("password-file", "", "read the password from this file instead of prompting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *role == "" {
		return errors.New("--username and --role are required")
	}

	password, err := readPassword(*passwordFile, stderr)
	if err != nil {
		return err
	}

	rr, _, err := g.router()
	if err != nil {
		return err
	}
	route, err := rr.Login(ctx, *username, password, *role)
	if err != nil {
		return err
	}

	s, err := rr.Current()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Signed in as %s (%s)\n", s.UserDetails.Username, s.UserType)
	fmt.Fprintf(stdout, "Dashboard: %s\n", route)
	return nil
}

func runWhoami(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("whoami", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rr, api, err := g.router()
	if err != nil {
		return err
	}
	s, err := rr.Current()
	if err != nil {
		return err
	}
	me, err := api.Me(ctx, s.AccessToken)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s <%s>\nrole:   %s\nstatus: %s\n", me.Username, me.Email, me.Role, me.Status)
	return nil
}

func runUsers(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("users", stderr)
	var p client.ListUsersParams
	fs.StringVar(&p.Role, "role", "", "filter by role")
	fs.StringVar(&p.Status, "status", "", "filter by status")
	fs.StringVar(&p.Search, "search", "", "match username, email or display name")
	fs.IntVar(&p.Page, "page", 1, "page number")
	fs.IntVar(&p.Limit, "limit", 20, "page size (max 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rr, api, err := g.router()
	if err != nil {
		return err
	}
	s, err := rr.Current()
	if err != nil {
		return err
	}
	page, err := api.ListUsers(ctx, s.AccessToken, p)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS")
	for _, u := range page.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, u.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "page %d of %d (%d total)\n", page.Pagination.Page, page.Pagination.TotalPages, page.Pagination.Total)
	return nil
}

func runLogout(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("logout", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rr, _, err := g.router()
	if err != nil {
		return err
	}
	if err := rr.Logout(ctx); err != nil {
		fmt.Fprintf(stderr, "warning: server logout failed: %v\n", err)
	}
	fmt.Fprintln(stdout, "Signed out")
	return nil
}

// readPassword reads from path when given, otherwise prompts on the terminal
// with echo disabled.
func readPassword(path string, prompt io.Writer) (string, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		pw := strings.TrimRight(string(data), "\r\n")
		if pw == "" {
			return "", fmt.Errorf("file %s is empty", path)
		}
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for interactive password prompt (use --password-file)")
	}
	fmt.Fprint(prompt, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}
