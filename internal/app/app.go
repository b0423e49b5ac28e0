package app

import (
	"context"
	"fmt"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/config"
	"github.com/andy/kaitenbill/internal/crypto"
	"github.com/andy/kaitenbill/internal/db"
	"github.com/andy/kaitenbill/internal/kaiten"
	"github.com/andy/kaitenbill/internal/logging"
	"github.com/andy/kaitenbill/internal/repository"
	"github.com/andy/kaitenbill/internal/service"
)

// App is the dependency injection container for all application components
type App struct {
	Config     *config.Config
	ConfigPath string
	DB         *db.DB
	Logger     *zap.Logger
	Keyring    crypto.Keyring
	Cache      *cache.Cache
	Kaiten     *kaiten.Client

	// Repositories
	EntryRepo   repository.TimeEntryRepository
	InvoiceRepo repository.InvoiceRepository

	// Services
	Ledger      service.LedgerService
	Boards      service.BoardService
	Invoices    service.InvoiceService
	ArchiveSync *service.ArchiveSync
}

// Options tweaks startup for the command being run
type Options struct {
	LogToStdout bool // the API server logs to the terminal as well as the file
}

// New loads the default config and builds the App
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg, config.DefaultConfigPath(), opts)
}

// NewWithConfig creates an App with a provided config. It handles:
// 1. Logging
// 2. Getting the encryption key and API token from the keyring
// 3. Opening the database and running migrations
// 4. Creating the Kaiten client, repositories and services
func NewWithConfig(ctx context.Context, cfg *config.Config, configPath string, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Path: cfg.Log.Path, Stdout: opts.LogToStdout})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	keyring := crypto.NewKeyring()

	password, err := keyring.GetKey()
	if err != nil {
		// No key exists, prompt user to set one
		fmt.Println("Setting up database encryption for the first time...")
		password, err = promptForPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.SetKey(password); err != nil {
			return nil, fmt.Errorf("failed to store encryption key: %w", err)
		}
	}

	database, err := db.Open(ctx, cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	token := cfg.Kaiten.APIToken
	if token == "" {
		if token, err = keyring.GetToken(); err != nil {
			// Commands that only touch the local ledger still work
			logger.Warn("No Kaiten API token configured", zap.Error(err))
			token = ""
		}
	}
	client := kaiten.NewClient(cfg.Kaiten.APIURL, token, cfg.Kaiten.Timeout, logger.Named("kaiten"))

	c := cache.New(cfg.Cache.StaleTime)

	entryRepo := repository.NewEntryRepo(database)
	invoiceRepo := repository.NewInvoiceRepo(database)

	archiveSync := service.NewArchiveSync(client, c, service.ArchiveSyncOptions{
		Delay:            cfg.Sync.Delay,
		RateLimitBackoff: cfg.Sync.RateLimitBackoff,
	}, logger.Named("sync"))
	ledger := service.NewLedgerService(entryRepo, c, logger.Named("ledger"))
	boards := service.NewBoardService(client, ledger, c, logger.Named("boards"))
	invoices := service.NewInvoiceService(invoiceRepo, ledger, archiveSync, c, logger.Named("invoices"))

	logger.Debug("App initialised", zap.String("config", configPath), zap.String("database", cfg.Database.Path))

	return &App{
		Config:      cfg,
		ConfigPath:  configPath,
		DB:          database,
		Logger:      logger,
		Keyring:     keyring,
		Cache:       c,
		Kaiten:      client,
		EntryRepo:   entryRepo,
		InvoiceRepo: invoiceRepo,
		Ledger:      ledger,
		Boards:      boards,
		Invoices:    invoices,
		ArchiveSync: archiveSync,
	}, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.ArchiveSync != nil {
		a.ArchiveSync.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(a.ConfigPath)
}

// promptForPassword prompts user for a new database password (first run)
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your invoices and time entries will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}
