package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/models"
	"trip-expenses/internal/storage"
)

const defaultDatabaseURL = "sqlite:expenses.db"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	email    string
	name     string
	password string
	role     string
	dbURL    string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "adduser",
		Short:         "Create a user account for RBN Viagens",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return addUser(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "Email used to log in")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (defaults to the email)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (optional, will prompt if omitted)")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleUser), "Role: admin or user")
	cmd.Flags().StringVar(&opts.dbURL, "db", "", "Database URL (defaults to $DATABASE_URL, then "+defaultDatabaseURL+")")
	return cmd
}

func addUser(cmd *cobra.Command, opts options) error {
	stdout := cmd.OutOrStdout()

	email := storage.NormalizeEmail(opts.email)
	if email == "" {
		fmt.Fprintln(stdout, "Usage: adduser --email <email> [--name <name>] [--password <password>] [--role admin|user] [--db <url>]")
		return fmt.Errorf("missing required flags: email")
	}
	if opts.role != string(models.RoleAdmin) && opts.role != string(models.RoleUser) {
		return fmt.Errorf("invalid role %q: use admin or user", opts.role)
	}
	name := strings.TrimSpace(opts.name)
	if name == "" {
		name = email
	}

	password := opts.password
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	dbURL := opts.dbURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		dbURL = defaultDatabaseURL
	}

	db, err := storage.NewDB(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := db.CreateUser(context.Background(), name, email, models.Role(opts.role), hash)
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return fmt.Errorf("user %s already exists", email)
	} else if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s (%s) created successfully with ID %d\n", user.Email, user.Role, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
