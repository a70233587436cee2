// portalctl is the operator companion to the portal API. It converts
// identifiers to and from URL tokens, mints back-office JWTs for scripting
// and applies the database schema.
//
// Secrets default to the same environment variables the API server reads,
// so a shell configured for the server can run portalctl unchanged.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
	pgstore "github.com/papeesearch/portal/internal/store/postgres"
	"github.com/papeesearch/portal/pkg/idtoken"
	"github.com/papeesearch/portal/pkg/logger"
)

const usage = `usage: portalctl <command> [flags] [args]

commands:
  encode <id>...      print the URL token for each numeric id
  decode <token>...   print the numeric id behind each token
  token               mint a back-office JWT (--user, --role)
  migrate             apply the database schema (--dsn)
`

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		code := 1
		var coded *exitError
		if errors.As(err, &coded) {
			code = coded.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(code)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return &exitError{code: 2, err: errors.New("missing command")}
	}

	switch args[0] {
	case "encode":
		return runEncode(args[1:], stdout)
	case "decode":
		return runDecode(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout)
	case "migrate":
		return runMigrate(args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return &exitError{code: 2, err: fmt.Errorf("unknown command %q", args[0])}
	}
}

// obfuscatorFlags registers the shared id-token flags on fs.
func obfuscatorFlags(fs *pflag.FlagSet) (secret, mode *string) {
	secret = fs.String("id-secret", os.Getenv("PORTAL_ID_SECRET"), "id token secret (default $PORTAL_ID_SECRET)")
	mode = fs.String("id-mode", envOr("PORTAL_ID_MODE", string(idtoken.ModeGCM)), "token scheme: gcm or legacy")
	return secret, mode
}

func newObfuscator(secret, mode string) (*idtoken.Obfuscator, error) {
	if secret == "" {
		return nil, errors.New("id secret required: use --id-secret or set PORTAL_ID_SECRET")
	}
	return idtoken.New(idtoken.Config{Secret: secret, Mode: idtoken.Mode(mode)}, logger.New(logger.ParseLevel("error"), false).Logger)
}

func runEncode(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	secret, mode := obfuscatorFlags(fs)
	if err := fs.Parse(args); err != nil {
		return &exitError{code: 2, err: err}
	}
	if fs.NArg() == 0 {
		return &exitError{code: 2, err: errors.New("encode needs at least one id")}
	}

	codec, err := newObfuscator(*secret, *mode)
	if err != nil {
		return err
	}
	for _, arg := range fs.Args() {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an integer id", arg)
		}
		fmt.Fprintln(stdout, codec.EncodeInt(id))
	}
	return nil
}

// runDecode prints one id per token. Failures are reported on stderr and the
// command exits 1 once every token has been tried.
func runDecode(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	secret, mode := obfuscatorFlags(fs)
	if err := fs.Parse(args); err != nil {
		return &exitError{code: 2, err: err}
	}
	if fs.NArg() == 0 {
		return &exitError{code: 2, err: errors.New("decode needs at least one token")}
	}

	codec, err := newObfuscator(*secret, *mode)
	if err != nil {
		return err
	}
	failed := 0
	for _, tok := range fs.Args() {
		id, ok := codec.DecodeInt(tok)
		if !ok {
			fmt.Fprintf(stderr, "%s: invalid token\n", tok)
			failed++
			continue
		}
		fmt.Fprintln(stdout, id)
	}
	if failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d tokens did not decode", failed, fs.NArg())}
	}
	return nil
}

func runToken(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	userID := fs.Int64("user", 1, "user ID the token is issued for")
	role := fs.String("role", string(models.RoleAdmin), "role claim: admin or subadmin")
	secret := fs.String("jwt-secret", os.Getenv("PORTAL_JWT_SECRET"), "JWT secret (default $PORTAL_JWT_SECRET)")
	expiry := fs.Duration("expiry", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return &exitError{code: 2, err: err}
	}

	if len(*secret) < 32 {
		return errors.New("JWT secret must be at least 32 characters: use --jwt-secret or set PORTAL_JWT_SECRET")
	}
	if !models.Role(*role).Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}
	if *userID <= 0 {
		return errors.New("--user must be positive")
	}

	svc := auth.NewService(&auth.Config{JWTSecret: []byte(*secret), TokenExpiry: *expiry}, nil)
	token, err := svc.GenerateToken(&models.User{ID: *userID, Role: models.Role(*role)})
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func runMigrate(args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	dsn := fs.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (default $DATABASE_URL)")
	timeout := fs.Duration("timeout", time.Minute, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return &exitError{code: 2, err: err}
	}
	if *dsn == "" {
		return errors.New("database DSN required: use --dsn or set DATABASE_URL")
	}

	log := logger.NewWithWriter(stderr, logger.ParseLevel("info"), false)
	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(*dsn), log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return st.Migrate(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
