// ABOUTME: Entry point for the whatsapp-gateway server
// ABOUTME: Keeps tenant sessions alive and forwards inbound messages to webhooks

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/mamaya21/whatsapp-gateway/internal/config"
	"github.com/mamaya21/whatsapp-gateway/internal/httpapi"
	"github.com/mamaya21/whatsapp-gateway/internal/identity"
	"github.com/mamaya21/whatsapp-gateway/internal/phone"
	"github.com/mamaya21/whatsapp-gateway/internal/session"
	"github.com/mamaya21/whatsapp-gateway/internal/store"
	"github.com/mamaya21/whatsapp-gateway/internal/transport"
	"github.com/mamaya21/whatsapp-gateway/internal/webhook"
)

// version is overridden at build time via -ldflags.
var version = "dev"

const banner = `
          _           _                                     _
__      _| |__   __ _| |_ ___  __ _ _ __  _ __         __ _| |_ ___      ____ _ _   _
\ \ /\ / / '_ \ / _' | __/ __|/ _' | '_ \| '_ \ _____ / _' | __/ _ \ /\ / / _' | | | |
 \ V  V /| | | | (_| | |_\__ \ (_| | |_) | |_) |_____| (_| | || (_| \ V V / (_| | |_| |
  \_/\_/ |_| |_|\__,_|\__|___/\__,_| .__/| .__/       \__, |\__\___/ \_/\_/ \__,_|\__, |
                                   |_|   |_|          |___/                       |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: WAGATEWAY_CONFIG env var > XDG_CONFIG_HOME/whatsapp-gateway/gateway.yaml
// > ~/.config/whatsapp-gateway/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("WAGATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "whatsapp-gateway", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: whatsapp-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve              Start the gateway server")
		fmt.Println("  init               Write a starter config file")
		fmt.Println("  token --name NAME  Mint an operator API token")
		fmt.Println("  health             Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "token":
		err = runToken()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Transport:  %s\n", cfg.Transport.Backend)
	if cfg.Deployment.Production {
		yellow := color.New(color.FgYellow)
		yellow.Print("    ▶ ")
		fmt.Println("Mode:       production")
	}
	fmt.Println()

	logger.Info("starting whatsapp-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"transport", cfg.Transport.Backend,
	)

	creds, err := store.NewCredentialStore(cfg.Storage.CredentialsPath)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer creds.Close()

	cache := identity.NewCache(cfg.Storage.IdentityCachePath, logger)
	defer cache.Close()

	norm := phone.New(cfg.Phone.DefaultCountryCode)
	hint := &identity.Hint{}

	var dialer transport.Dialer
	switch cfg.Transport.Backend {
	case "loopback":
		dialer = transport.NewLoopbackDialer(logger)
	default:
		return fmt.Errorf("unsupported transport backend %q", cfg.Transport.Backend)
	}

	supervisor := session.NewSupervisor(session.Params{
		Dialer:      dialer,
		Resolver:    identity.NewResolver(norm, cache, hint, logger),
		Hint:        hint,
		Credentials: creds,
		Dispatcher:  webhook.NewDispatcher(cfg.Webhook.Timeout, logger),
		Normalizer:  norm,
		Logger:      logger,
		Production:  cfg.Deployment.Production,
	})
	defer supervisor.Close()

	verifier := httpapi.NewTokenVerifier([]byte(cfg.Auth.JWTSecret))
	server := httpapi.NewServer(cfg.Server.HTTPAddr, supervisor, verifier, logger)
	return server.Run(ctx)
}

const starterConfig = `server:
  http_addr: ":8080"

auth:
  jwt_secret: "${WAGATEWAY_JWT_SECRET}"

storage:
  credentials_path: "data/credentials.db"
  identity_cache_path: "data/identities.json"

transport:
  backend: "loopback"

webhook:
  timeout: "5s"

phone:
  default_country_code: "51"

deployment:
  production: false

logging:
  level: "info"
  format: "text"
`

func runInit() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	fmt.Println("Set WAGATEWAY_JWT_SECRET (or edit auth.jwt_secret) before serving.")
	return nil
}

func runToken() error {
	name := ""
	for i := 2; i < len(os.Args)-1; i++ {
		if os.Args[i] == "--name" {
			name = os.Args[i+1]
		}
	}
	if name == "" {
		return fmt.Errorf("usage: whatsapp-gateway token --name NAME")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := httpapi.NewToken([]byte(cfg.Auth.JWTSecret), name, 90*24*time.Hour)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Server.HTTPAddr
	if addr[0] == ':' {
		addr = "localhost" + addr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway unhealthy: %s", resp.Status)
	}

	fmt.Println("gateway healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
