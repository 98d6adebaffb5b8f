package main

import (
	"fmt"
	"os"

	"mindscape-agent/internal/config"
	"mindscape-agent/pkg/logger"
	"mindscape-agent/pkg/utils"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configPath    string
	port          int
	encryptSecret string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("mindscape-agent", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "absolute path to a YAML or JSON config file")
	fs.IntVarP(&opts.port, "port", "p", 0, "override the listen port")
	fs.StringVar(&opts.encryptSecret, "encrypt-secret", "", "print the TOTP secret encrypted with AUTH_ENCRYPTION_KEY and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadConfig resolves configuration as defaults, then the config file, then
// the environment, then flags.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if opts.encryptSecret != "" {
		encrypted, err := utils.EncryptSecret(opts.encryptSecret, cfg.Auth.EncryptionKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encrypt secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(encrypted)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := SetupServer(cfg)
	if err != nil {
		logger.Fatal("Failed to setup server", zap.Error(err))
	}

	if err := StartServer(srv); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
