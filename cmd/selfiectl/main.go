// Command selfiectl registers reference selfies and lists registrations in
// the database the server reads from.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"tripmate/internal/platform/logger"
	"tripmate/internal/platform/postgres"
	registryservice "tripmate/internal/registry/service"
	registrystore "tripmate/internal/registry/store"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, openPostgres); err != nil {
		fmt.Fprintf(os.Stderr, "selfiectl: %v\n", err)
		os.Exit(1)
	}
}

// opener connects to the registry store named by databaseURL.
type opener func(ctx context.Context, databaseURL string) (registryservice.Store, func(), error)

func openPostgres(ctx context.Context, databaseURL string) (registryservice.Store, func(), error) {
	if databaseURL == "" {
		return nil, nil, errors.New("--database-url or DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return registrystore.NewPostgres(db), func() { _ = db.Close() }, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, open opener) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}

	switch args[0] {
	case "register":
		return runRegister(ctx, args[1:], stdout, stderr, open)
	case "list":
		return runList(ctx, args[1:], stdout, stderr, open)
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runRegister(ctx context.Context, args []string, stdout, stderr io.Writer, open opener) error {
	var phone, file, databaseURL string
	flagSet := pflag.NewFlagSet("register", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&phone, "phone", "", "phone number the selfie belongs to")
	flagSet.StringVarP(&file, "file", "f", "", "path to a JPEG or PNG selfie")
	flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if phone == "" || file == "" {
		return errors.New("register needs --phone and --file")
	}

	image, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read selfie: %w", err)
	}

	store, closeStore, err := open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := registryservice.New(store, registryservice.WithLogger(logger.NewWithWriter(stderr, "warn")))
	selfie, err := svc.Register(ctx, phone, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "registered selfie %d for %s at %s\n", selfie.ID, selfie.Phone, selfie.CreatedAt.UTC().Format(time.RFC3339))
	return nil
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer, open opener) error {
	var databaseURL string
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	regs, err := registryservice.New(store).ListRegistrations(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHONE\tCREATED_AT")
	for _, r := range regs {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Phone, r.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `selfiectl manages reference selfies used for check-in face matching.

Usage:
  selfiectl register --phone <number> --file <selfie.jpg> [--database-url URL]
  selfiectl list [--database-url URL]

DATABASE_URL is read from the environment or a .env file when the flag is omitted.
`)
}
