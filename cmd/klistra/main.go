// Command klistra creates and reads end-to-end encrypted pastes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	klistra "github.com/klistra/client-go"
)

const usage = `usage: klistra <command> [flags] [args]

commands:
  create [--password P] [--expiry D] [--language L] [--file PATH]... [TEXT|-]
  read <id> [--password P] [--out DIR]
  status <id>
`

// Config holds the process environment of a CLI invocation.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// BaseURL is the paste service root. Empty uses the SDK default.
	BaseURL  string
	Timeout  time.Duration
	LogLevel string
	// HTTPClient overrides the SDK's HTTP client when set.
	HTTPClient *http.Client
}

// DefaultConfig returns a Config bound to the process stdio and environment.
// A .env file in the working directory is loaded first if present.
func DefaultConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		BaseURL:  os.Getenv("KLISTRA_URL"),
		LogLevel: os.Getenv("KLISTRA_LOG_LEVEL"),
	}
	if v := os.Getenv("KLISTRA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

func run(args []string, cfg Config) error {
	if len(args) < 2 {
		fmt.Fprint(cfg.Stderr, usage)
		return errors.New("missing command")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	opts := []klistra.Option{klistra.WithLogger(logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, klistra.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, klistra.WithTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, klistra.WithHTTPClient(cfg.HTTPClient))
	}

	client, err := klistra.New(opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	ctx := context.Background()

	switch args[1] {
	case "create":
		return createPaste(ctx, client, args[2:], cfg)
	case "read":
		return readPaste(ctx, client, args[2:], cfg)
	case "status":
		return pasteStatus(ctx, client, args[2:], cfg)
	case "help", "-h", "--help":
		fmt.Fprint(cfg.Stdout, usage)
		return nil
	default:
		fmt.Fprint(cfg.Stderr, usage)
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func newLogger(cfg Config) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if cfg.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		level = parsed
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cfg.Stderr, NoColor: true}).
		Level(level).
		With().Timestamp().Logger(), nil
}

func createPaste(ctx context.Context, client *klistra.Client, args []string, cfg Config) error {
	fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	password := fs.String("password", "", "protect the paste with a password")
	expiry := fs.Duration("expiry", klistra.DefaultExpiry, "how long the paste lives")
	language := fs.String("language", "", "syntax highlighting hint")
	files := fs.StringArray("file", nil, "attach a file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var draft klistra.Draft
	switch rest := fs.Args(); {
	case len(rest) > 1:
		return errors.New("create takes at most one text argument")
	case len(rest) == 1 && rest[0] != "-":
		draft.Text = rest[0]
	case len(rest) == 1 || len(*files) == 0:
		data, err := io.ReadAll(cfg.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		draft.Text = string(data)
	}

	for _, path := range *files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		draft.Files = append(draft.Files, klistra.DraftFile{Name: filepath.Base(path), Content: data})
	}

	created, err := client.CreatePaste(ctx, draft,
		klistra.WithPassword(*password),
		klistra.WithExpiry(*expiry),
		klistra.WithLanguage(*language),
	)
	if err != nil {
		return fmt.Errorf("create paste: %w", err)
	}

	enc := json.NewEncoder(cfg.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(created.Export()); err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	return nil
}

func readPaste(ctx context.Context, client *klistra.Client, args []string, cfg Config) error {
	fs := pflag.NewFlagSet("read", pflag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	password := fs.String("password", "", "password of a protected paste")
	outDir := fs.String("out", "", "directory to write attached files to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: klistra read <id> [--password P] [--out DIR]")
	}

	paste, err := client.ReadPaste(ctx, fs.Arg(0), *password)
	if err != nil {
		if errors.Is(err, klistra.ErrPasteLocked) {
			return errors.New("paste is password protected; pass --password")
		}
		return err
	}

	var failed int
	text, err := paste.Text()
	switch {
	case err != nil:
		fmt.Fprintf(cfg.Stderr, "text: %v\n", err)
		failed++
	case text != "":
		fmt.Fprint(cfg.Stdout, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(cfg.Stdout)
		}
	}

	for _, f := range paste.Files() {
		if *outDir == "" {
			fmt.Fprintf(cfg.Stderr, "file %s (%d bytes); use --out to save\n", f.Name(), f.Size())
			continue
		}
		data, err := f.Decrypt(ctx)
		if err != nil {
			fmt.Fprintf(cfg.Stderr, "file %s: %v\n", f.Name(), err)
			failed++
			continue
		}
		dest := filepath.Join(*outDir, filepath.Base(f.Name()))
		if err := os.WriteFile(dest, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Fprintf(cfg.Stderr, "wrote %s\n", dest)
	}
	if failed > 0 {
		return fmt.Errorf("%d part(s) of the paste could not be read", failed)
	}
	return nil
}

type statusOutput struct {
	ID        string `json:"id"`
	Protected bool   `json:"protected"`
	ExpiresAt string `json:"expiresAt"`
}

func pasteStatus(ctx context.Context, client *klistra.Client, args []string, cfg Config) error {
	if len(args) != 1 {
		return errors.New("usage: klistra status <id>")
	}
	status, err := client.PasteStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return json.NewEncoder(cfg.Stdout).Encode(statusOutput{
		ID:        status.ID,
		Protected: status.Protected,
		ExpiresAt: status.ExpiresAt.Format(time.RFC3339),
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
