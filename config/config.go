// Package config implements the bank's layered configuration (spec.md
// §6): a built-in default, an optional local override file, and a final
// CHAINCASH_* environment overlay — the same three-tier shape the teacher
// resolves its own node config through (TOML file plus CLI-flag overlay in
// cmd/utils/flags.go), adapted here to an env overlay since this process
// has no CLI flag for every config key.
package config

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// ServerConfig is this bank process's own HTTP listen address.
type ServerConfig struct {
	URL  string `toml:"url"`
	Port int    `toml:"port"`
}

// StoreConfig points at the relational store (store/sqlstore's DSN).
type StoreConfig struct {
	URL string `toml:"url"`
}

// NodeConfig points at the ledger node this bank indexes and submits
// transactions through (nodeclient.Client).
type NodeConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// AcceptanceConfig lists the TOML predicate files to load at startup
// (acceptance.LoadPredicate, one per path).
type AcceptanceConfig struct {
	Predicates []string `toml:"predicates"`
}

// Config is the full tree spec.md §6 names: server.{url,port}, store.url,
// node.{url,api_key}, acceptance.predicates.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Store      StoreConfig      `toml:"store"`
	Node       NodeConfig       `toml:"node"`
	Acceptance AcceptanceConfig `toml:"acceptance"`
}

// Default is the built-in fallback, applied before any file or env
// overlay. A fresh checkout with no config files at all still starts.
var Default = Config{
	Server: ServerConfig{URL: "127.0.0.1", Port: 8080},
	Store:  StoreConfig{URL: "chaincash.db"},
	Node:   NodeConfig{URL: "http://127.0.0.1:9053"},
}

// Load resolves the layered configuration: Default, then defaultPath if it
// exists, then localPath if it exists, then the CHAINCASH_* environment.
// Neither file is required — a missing defaultPath or localPath is not an
// error, matching spec.md §6's "config/local (optional)".
func Load(defaultPath, localPath string) (Config, error) {
	cfg := Default

	for _, path := range []string{defaultPath, localPath} {
		if path == "" {
			continue
		}
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	overlayEnv(&cfg)

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// overlayEnv applies CHAINCASH_* overrides. Each key is looked up and
// applied individually (no reflection-based env-to-struct library), the
// same explicit-field style as the teacher's cmd/utils/flags.go wiring CLI
// flags onto tosconfig.Config one field at a time.
func overlayEnv(cfg *Config) {
	if v, ok := os.LookupEnv("CHAINCASH_SERVER_URL"); ok {
		cfg.Server.URL = v
	}
	if v, ok := lookupEnvInt("CHAINCASH_SERVER_PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("CHAINCASH_STORE_URL"); ok {
		cfg.Store.URL = v
	}
	if v, ok := os.LookupEnv("CHAINCASH_NODE_URL"); ok {
		cfg.Node.URL = v
	}
	if v, ok := os.LookupEnv("CHAINCASH_NODE_API_KEY"); ok {
		cfg.Node.APIKey = v
	}
	if v, ok := os.LookupEnv("CHAINCASH_ACCEPTANCE_PREDICATES"); ok {
		cfg.Acceptance.Predicates = splitNonEmpty(v, ',')
	}
}

func lookupEnvInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
