// Package admin implements the operator command line: schema migrations and
// account bootstrap against the database, plus login and token checks
// against a running server.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Accounts creates identities without a caller check.
type Accounts interface {
	CreateUser(ctx context.Context, in services.UserInput) (*models.User, error)
}

// Remote calls IdentityService methods on a running server.
type Remote interface {
	Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error)
}

// OpenFunc connects to the store, applying migrations on the way.
type OpenFunc func(ctx context.Context) (Accounts, func() error, error)

// DialFunc connects to the server at addr.
type DialFunc func(addr string) (Remote, func() error, error)

type CLI struct {
	open OpenFunc
	dial DialFunc
	in   *bufio.Reader
	out  io.Writer
}

func New(open OpenFunc, dial DialFunc, in io.Reader, out io.Writer) *CLI {
	return &CLI{open: open, dial: dial, in: bufio.NewReader(in), out: out}
}

const usage = `usage: idkeeper-admin <command> [flags]

commands:
  migrate                         apply database migrations
  create-user -username -email    create an account (password is prompted)
              [-roles Admin,HR] [-first-name] [-last-name]
  login -server -username         sign in and print the access token
  verify -server <token>          show who a token speaks for`

var errUsage = errors.New("invalid usage")

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.out, usage)
		return errUsage
	}

	switch args[0] {
	case "migrate":
		return c.migrate(ctx)
	case "create-user":
		return c.createUser(ctx, args[1:])
	case "login":
		return c.login(ctx, args[1:])
	case "verify":
		return c.verify(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, usage)
		return nil
	}
	fmt.Fprintln(c.out, usage)
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func (c *CLI) migrate(ctx context.Context) error {
	_, closeFn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	fmt.Fprintln(c.out, "Migrations applied")
	return nil
}

func (c *CLI) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(c.out)
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	roles := fs.String("roles", string(models.RoleGeneral), "comma separated roles")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = promptLine(c.in, "Username", c.out); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = promptLine(c.in, "Email", c.out); err != nil {
			return err
		}
	}

	parsed, err := models.ParseRoles(splitList(*roles))
	if err != nil {
		return err
	}

	pw, err := promptNewPassword(c.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	accounts, closeFn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	user, err := accounts.CreateUser(ctx, services.UserInput{
		UserName:  *username,
		Email:     *email,
		Password:  string(pw),
		FirstName: *first,
		LastName:  *last,
		Roles:     parsed,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Created %s (%s) with roles %s\n", user.UserName, user.ID,
		strings.Join(models.RoleNames(user.Roles), ","))
	return nil
}

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.out)
	server := fs.String("server", "localhost:50051", "server address")
	username := fs.String("username", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = promptLine(c.in, "Username", c.out); err != nil {
			return err
		}
	}
	pw, err := promptPassword("Password", c.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	remote, closeFn, err := c.dial(*server)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := remote.Call(ctx, "Login", map[string]any{"username": *username, "password": string(pw)})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Access token: %v\nExpires at:   %v\n", resp["access_token"], resp["expires_at"])
	return nil
}

func (c *CLI) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(c.out)
	server := fs.String("server", "localhost:50051", "server address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: verify takes exactly one token", errUsage)
	}
	token := fs.Arg(0)

	remote, closeFn, err := c.dial(*server)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
	resp, err := remote.Call(ctx, "VerifyToken", nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Subject:  %v\nUsername: %v\nRoles:    %v\n", resp["sub"], resp["username"], joinAny(resp["roles"]))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinAny(v any) string {
	items, _ := v.([]any)
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprint(it))
	}
	return strings.Join(parts, ",")
}
