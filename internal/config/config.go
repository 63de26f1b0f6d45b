// Package config loads the process-wide Config the Core binary needs at
// startup (spec §2 [AMBIENT] "configuration for the whole process ... is
// loaded once at startup through a single Config struct"). Values layer in
// increasing priority: built-in defaults, an optional TOML file, then
// environment variables — the same env-override-file convention the
// teacher's cobra flags use for per-command defaults, generalized to a
// single process-wide struct since Komodo has one binary, not a fleet of
// cluster subcommands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/komodo-io/komodo-core/internal/logging"
	"github.com/komodo-io/komodo-core/internal/registryauth"
)

// RegistryAccount is one configured container-registry credential (spec
// §4.5 "provider accounts").
type RegistryAccount struct {
	Domain  string `toml:"domain"`
	Account string `toml:"account"`
	Token   string `toml:"token"`
}

// Config is every process-wide setting the Core binary needs before it can
// serve a single request.
type Config struct {
	// DataDir holds the bbolt database file and per-sync git workspaces.
	DataDir string `toml:"data_dir"`
	// ListenAddress is where the webhook/health/metrics HTTP surface binds.
	ListenAddress string `toml:"listen_address"`

	LogLevel  string `toml:"log_level"`
	LogJSON   bool   `toml:"log_json"`

	// SecretPassphrase derives the AES-256-GCM key store.SecretBox uses to
	// encrypt Secret/Variable values at rest (spec §3 "storage/encryption
	// binding"). Required; the process refuses to start without it.
	SecretPassphrase string `toml:"secret_passphrase"`

	// WebhookSecret authenticates inbound webhook deliveries (spec §6,
	// internal/webhook.Verify).
	WebhookSecret string `toml:"webhook_secret"`

	// ImagePrefixDomain/ImagePrefixOrganization are not read by image name
	// resolution, which takes the domain/org/account prefix from each
	// Build's ImageRegistry config.
	ImagePrefixDomain       string `toml:"image_prefix_domain"`
	ImagePrefixOrganization string `toml:"image_prefix_organization"`

	RegistryAccounts []RegistryAccount `toml:"registry_accounts"`

	// EnableEC2Builder/EnableHetznerBuilder gate whether the Core wires a
	// CloudBuilder for that provider at all (spec §4.7 "Either may be nil
	// if that provider is not configured"). AWS credentials, when enabled,
	// come from the SDK's own default provider chain, not this struct.
	EnableEC2Builder     bool   `toml:"enable_ec2_builder"`
	EnableHetznerBuilder bool   `toml:"enable_hetzner_builder"`
	HetznerToken         string `toml:"hetzner_token"`
}

// defaults returns the built-in base Config before any file or environment
// override is applied.
func defaults() Config {
	return Config{
		DataDir:       "data",
		ListenAddress: "0.0.0.0:9120",
		LogLevel:      "info",
		LogJSON:       false,
	}
}

// Load builds a Config: defaults, then path (if non-empty and present), then
// environment variables, in that order of increasing priority.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.SecretPassphrase == "" {
		return Config{}, fmt.Errorf("config: secret_passphrase (or KOMODO_SECRET_PASSPHRASE) is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("KOMODO_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("KOMODO_LISTEN_ADDRESS"); ok {
		cfg.ListenAddress = v
	}
	if v, ok := os.LookupEnv("KOMODO_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("KOMODO_LOG_JSON"); ok {
		cfg.LogJSON = truthy(v)
	}
	if v, ok := os.LookupEnv("KOMODO_SECRET_PASSPHRASE"); ok {
		cfg.SecretPassphrase = v
	}
	if v, ok := os.LookupEnv("KOMODO_WEBHOOK_SECRET"); ok {
		cfg.WebhookSecret = v
	}
	if v, ok := os.LookupEnv("KOMODO_IMAGE_PREFIX_DOMAIN"); ok {
		cfg.ImagePrefixDomain = v
	}
	if v, ok := os.LookupEnv("KOMODO_IMAGE_PREFIX_ORGANIZATION"); ok {
		cfg.ImagePrefixOrganization = v
	}
	if v, ok := os.LookupEnv("KOMODO_ENABLE_EC2_BUILDER"); ok {
		cfg.EnableEC2Builder = truthy(v)
	}
	if v, ok := os.LookupEnv("KOMODO_ENABLE_HETZNER_BUILDER"); ok {
		cfg.EnableHetznerBuilder = truthy(v)
	}
	if v, ok := os.LookupEnv("KOMODO_HETZNER_TOKEN"); ok {
		cfg.HetznerToken = v
	}
	// KOMODO_REGISTRY_ACCOUNTS is domain|account|token triples separated by
	// commas, for deployments that can't ship a config file.
	if v, ok := os.LookupEnv("KOMODO_REGISTRY_ACCOUNTS"); ok && v != "" {
		cfg.RegistryAccounts = parseRegistryAccountsEnv(v)
	}
}

func parseRegistryAccountsEnv(v string) []RegistryAccount {
	var out []RegistryAccount
	for _, entry := range strings.Split(v, ",") {
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 {
			logging.Warn("config: skipping malformed KOMODO_REGISTRY_ACCOUNTS entry: " + entry)
			continue
		}
		out = append(out, RegistryAccount{Domain: parts[0], Account: parts[1], Token: parts[2]})
	}
	return out
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// LoggingLevel converts LogLevel to the internal/logging.Level it names,
// falling back to info on an unrecognized value.
func (c Config) LoggingLevel() logging.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return logging.DebugLevel
	case "warn", "warning":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}

// Accounts converts RegistryAccounts to registryauth.Account for
// registryauth.NewResolver.
func (c Config) Accounts() []registryauth.Account {
	out := make([]registryauth.Account, 0, len(c.RegistryAccounts))
	for _, a := range c.RegistryAccounts {
		out = append(out, registryauth.Account{Domain: a.Domain, Account: a.Account, Token: a.Token})
	}
	return out
}
