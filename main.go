package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"bookstore/internal/config"
	"bookstore/internal/db"
	"bookstore/internal/errs"
	"bookstore/internal/logger"
	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "bookstore",
		Short:        "Bookstore catalog and account services",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newServeCatalogCommand(),
		newServeAccountsCommand(),
		newMigrateCommand(),
		newCreateAdminCommand(),
	)
	return root
}

// app holds what every subcommand needs.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *sql.DB
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.InitLogger(cfg.Log.Level, cfg.Log.Format)

	database, err := db.InitDB(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("Database connection failed")
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: database}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the books and users tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return db.RunMigrations(a.db, a.log)
		},
	}
}

func newCreateAdminCommand() *cobra.Command {
	var req models.RegisterRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.FirstName == "" {
				req.FirstName = req.Username
			}
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			req.Password = password
			req.UserType = models.UserTypeAdmin

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			users := services.NewUserService(a.db, a.log)
			if err := users.Register(cmd.Context(), &req); err != nil {
				var e *errs.Error
				if errors.As(err, &e) && e.Kind != errs.KindInternal {
					return errors.New(e.Message)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Administrator '%s' created.\n", req.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "administrator username")
	cmd.Flags().StringVar(&req.MailID, "mailid", "", "administrator email address")
	cmd.Flags().StringVar(&req.FirstName, "firstname", "", "first name (defaults to the username)")
	cmd.Flags().StringVar(&req.LastName, "lastname", "", "last name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("mailid")
	return cmd
}

// readPassword prompts twice on a terminal. Piped input is read as a single
// line so the command can be scripted.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	prompt := func(label string) (string, error) {
		fmt.Fprint(cmd.ErrOrStderr(), label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	password, err := prompt("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := prompt("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
