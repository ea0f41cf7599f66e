/*
main.go - Application entry point

PURPOSE:
  Starts the wallet ledger server and offers two maintenance commands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  server [serve]                       Run the HTTP API (default)
  server migrate                       Create or update the schema and exit
  server verify --owner ID [--wallet]  Replay mutation trails, exit 1 on drift

STARTUP SEQUENCE (serve):
  1. Load config file, then apply flag overrides
  2. Open the store (sqlite3, sqlite or pgx) and migrate
  3. Create finance service and API handler
  4. Start the drift audit if enabled
  5. Start server with graceful shutdown

FLAGS (all commands):
  --config   TOML config file (default: ledger.toml, optional)
  --port     HTTP port, overrides [server].port
  --db       DSN or SQLite path, overrides [database].dsn
             Use ":memory:" for an in-memory SQLite database
  --driver   sqlite3 | sqlite | pgx, overrides [database].driver

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests ([server].shutdown_timeout)
  3. Stop the audit and close the database
  4. Exit

EXAMPLES:
  ./server --db=./data/ledger.db
  ./server --driver=pgx --db="postgres://ledger@localhost/ledger"
  ./server verify --owner=alice

SEE ALSO:
  - config/config.go: File format and defaults
  - api/server.go: Router configuration
  - store/sqlstore/sqlstore.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/wallet-ledger/api"
	"github.com/warp/wallet-ledger/config"
	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
	"github.com/warp/wallet-ledger/store/sqlstore"
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Multi-wallet personal finance ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check wallet balances against their mutation trails",
	Long: `Replays each wallet's mutations and compares the result with the stored
balance. Exits non-zero if any wallet has drifted.`,
	RunE: runVerify,
}

func init() {
	rootCmd.PersistentFlags().String("config", "ledger.toml", "Path to TOML config file")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP server port")
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite3, sqlite or pgx")

	verifyCmd.Flags().String("owner", "", "Owner whose wallets are checked (required)")
	verifyCmd.Flags().String("wallet", "", "Check only this wallet")
	_ = verifyCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(serveCmd, migrateCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.DSN = db
	}
	if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
		cfg.Database.Driver = driver
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (*sqlstore.Store, error) {
	// SQLite creates the file but not its directory.
	if cfg.Database.Driver != string(sqlstore.DriverPostgres) && cfg.Database.DSN != ":memory:" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	store, err := sqlstore.Open(sqlstore.Driver(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := finance.NewService(store)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler, cfg)

	if cfg.Audit.Enabled {
		interval, _ := cfg.AuditInterval()
		audit := api.NewAuditScheduler(svc, store)
		audit.CheckInterval = interval
		audit.Start()
		defer audit.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on http://%s (driver %s)", cfg.Addr(), cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}

	log.Println("Shutting down server...")

	timeout, _ := cfg.ShutdownTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// =============================================================================
// MIGRATE
// =============================================================================

// runMigrate relies on Open, which applies the schema before returning.
func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Printf("Schema up to date (%s)", cfg.Database.Driver)
	return nil
}

// =============================================================================
// VERIFY
// =============================================================================

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	owner, _ := cmd.Flags().GetString("owner")
	wallet, _ := cmd.Flags().GetString("wallet")

	return verifyWallets(cmd.Context(), finance.NewService(store), ledger.OwnerID(owner),
		ledger.WalletID(wallet), cmd.OutOrStdout())
}

// verifyWallets prints one line per wallet and fails if any drifted.
func verifyWallets(ctx context.Context, svc *finance.Service, owner ledger.OwnerID, only ledger.WalletID, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var ids []ledger.WalletID
	if only != "" {
		ids = []ledger.WalletID{only}
	} else {
		wallets, err := svc.ListWallets(ctx, owner)
		if err != nil {
			return err
		}
		for _, w := range wallets {
			ids = append(ids, w.ID)
		}
	}

	drifted := 0
	for _, id := range ids {
		rec, err := svc.VerifyWallet(ctx, owner, id)
		var drift *ledger.DriftError
		switch {
		case err == nil:
			fmt.Fprintf(out, "OK     %s  balance=%s  mutations=%d\n", id, rec.StoredBalance, rec.Mutations)
		case errors.As(err, &drift):
			drifted++
			fmt.Fprintf(out, "DRIFT  %s  %v\n", id, drift)
		default:
			return err
		}
	}

	if drifted > 0 {
		return fmt.Errorf("%d of %d wallets drifted", drifted, len(ids))
	}
	return nil
}
