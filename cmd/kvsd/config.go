package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NamespaceConfig describes one kvs namespace this node serves.
type NamespaceConfig struct {
	Name      string `yaml:"name"`
	Algo      string `yaml:"algo"`
	IsPrimary bool   `yaml:"primary"`
}

// dataDir returns the per-namespace content store directory nested under
// the node's data directory.
func (nc NamespaceConfig) dataDir(root string) string {
	return filepath.Join(root, "content", nc.Name)
}

// Config is kvsd's on-disk cluster bootstrap file (kvsd.yaml): node
// identity, Raft bind address, data directory, and the namespaces this
// node serves.
type Config struct {
	NodeID     string            `yaml:"node_id"`
	BindAddr   string            `yaml:"bind_addr"`
	RPCAddr    string            `yaml:"rpc_addr"`
	MetricsAddr string           `yaml:"metrics_addr"`
	DataDir    string            `yaml:"data_dir"`
	Namespaces []NamespaceConfig `yaml:"namespaces"`
}

func defaultConfig() Config {
	return Config{
		NodeID:      "kvsd-1",
		BindAddr:    "127.0.0.1:7946",
		RPCAddr:     "127.0.0.1:7760",
		MetricsAddr: "127.0.0.1:9090",
		DataDir:     "./kvsd-data",
		Namespaces: []NamespaceConfig{
			{Name: "primary", Algo: "sha256", IsPrimary: true},
		},
	}
}

// loadConfig reads path if it exists, falling back to defaultConfig
// values for any field an empty/missing file leaves unset.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
