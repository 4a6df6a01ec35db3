package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/api"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const envPrefix = "RECEIPT_SCANNER"

// rootConfig holds the flags shared by every command
type rootConfig struct {
	flags       *ff.FlagSet
	apiBaseURL  *string
	dbPath      *string
	storagePath *string
	logLevel    *string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// The build or deploy step may drop the base URL into a .env file
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix(envPrefix))
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvFile loads RECEIPT_SCANNER_ENV_FILE, or .env, when present.
// Variables already set in the environment win.
func loadEnvFile() error {
	path := os.Getenv(envPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func newRootCommand() *ff.Command {
	fs := ff.NewFlagSet("receipt-scanner")
	cfg := &rootConfig{
		flags:       fs,
		apiBaseURL:  fs.StringLong("api-base-url", api.DefaultBaseURL, "Receipt API base URL"),
		dbPath:      fs.StringLong("db", "receipt-scanner.db", "Snapshot database file path"),
		storagePath: fs.StringLong("storage", "./receipts", "Directory for downloaded receipt images"),
		logLevel:    fs.StringLong("log-level", "info", "Log level: debug, info, warn or error"),
	}
	fs.BoolLong("version", "Show version information")

	var root *ff.Command
	root = &ff.Command{
		Name:      "receipt-scanner",
		Usage:     "receipt-scanner [FLAGS] <SUBCOMMAND> ...",
		ShortHelp: "upload receipt images to the receipt API and browse the results",
		Flags:     fs,
		Subcommands: []*ff.Command{
			newServeCommand(cfg),
			newUploadCommand(cfg),
			newListCommand(cfg),
			newShowCommand(cfg),
			newImageCommand(cfg),
		},
		Exec: func(ctx context.Context, args []string) error {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
			return nil
		},
	}
	return root
}

// setupLogging installs the default logger at the configured level
func (c *rootConfig) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(*c.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", *c.logLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
