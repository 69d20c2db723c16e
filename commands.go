package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-backend/internal/borrowing"
	"library-backend/internal/catalog"
	"library-backend/internal/memstore"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/config"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/logging"
	"library-backend/internal/platform/throttle"
	"library-backend/internal/server"
	"library-backend/internal/users"
)

const shutdownTimeout = 10 * time.Second

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty || cfg.Mode == config.ModeDev)
	log.Info().Str("mode", cfg.Mode).Str("version", cfg.Version).Msg("config loaded")
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info().Str("db", cfg.DB.DBName).Str("host", cfg.DB.Host).Msg("connected to database")
	return conn, nil
}

// ===== serve =====

func newServeCmd(configPath *string) *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if memory && cfg.Mode != config.ModeDev {
				return errors.New("--memory is only allowed in dev mode")
			}
			return serve(cmd.Context(), cfg, memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "keep all data in memory instead of MySQL (dev only)")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, memory bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter, closeLimiter, err := throttle.New(ctx, *cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	var (
		userStore users.Store
		books     catalog.Store
		ledger    borrowing.Ledger
		ping      func(context.Context) error
	)
	if memory {
		mem := memstore.New()
		userStore, books, ledger = mem.Users(), mem.Catalog(), mem.Ledger()
		log.Warn().Msg("using in-memory storage, data is lost on exit")
	} else {
		conn, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		userStore, books, ledger = users.NewStore(conn), catalog.NewStore(conn), borrowing.NewStore(conn)
		ping = conn.PingContext
	}

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	usvc := users.NewService(userStore, tokens, limiter)

	r := server.NewRouter(server.Deps{
		Mode:         cfg.Mode,
		AllowOrigins: cfg.Server.AllowOrigins,
		Tokens:       tokens,
		Users:        usvc,
		Catalog:      catalog.NewService(books),
		Borrowing:    borrowing.NewService(ledger),
		Ping:         ping,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.CertFile != "" {
			log.Info().Str("addr", srv.Addr).Msg("listening (TLS)")
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ===== migrate =====

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			log.Info().Int("statements", len(db.Statements())).Msg("schema applied")
			return nil
		},
	}
}

// ===== create-librarian =====

func newCreateLibrarianCmd(configPath *string) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-librarian",
		Short: "Register a librarian account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}

			conn, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
			svc := users.NewService(users.NewStore(conn), tokens, throttle.Noop{})
			u, err := svc.CreateLibrarian(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "librarian %s created with id %d\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readNewPassword prompts twice with masking on a terminal. Piped input is
// read as a single line.
func readNewPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	read := func(prompt string) (string, error) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	first, err := read("Password: ")
	if err != nil {
		return "", err
	}
	second, err := read("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
