package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Index   IndexConfig   `yaml:"index"`
	Storage StorageConfig `yaml:"storage"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // TCP Listen Address (e.g. :9090)
}

type IndexConfig struct {
	TreeOrder    int     `yaml:"tree_order"`     // B+ tree order, >= 3
	DefaultAlpha float64 `yaml:"default_alpha"`  // risk tolerance when a query passes none
	HNSWM        int     `yaml:"hnsw_m"`         // HNSW link budget per node
	HNSWEfSearch int     `yaml:"hnsw_ef_search"` // initial HNSW exploration width
}

type StorageConfig struct {
	Path            string `yaml:"path"`              // data directory; empty disables persistence
	WriteBufferSize int    `yaml:"write_buffer_size"` // pending record channel capacity
	BatchSize       int    `yaml:"batch_size"`        // records per SQLite transaction
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Index: IndexConfig{
			TreeOrder:    64,
			DefaultAlpha: 0.01,
			HNSWM:        16,
			HNSWEfSearch: 200,
		},
		Storage: StorageConfig{
			Path:            "rangeann_data",
			WriteBufferSize: 5000,
			BatchSize:       500,
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/rangeann.yaml", "rangeann.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Index.TreeOrder < 3 {
		cfg.Index.TreeOrder = 64
	}
	if cfg.Index.DefaultAlpha <= 0 || cfg.Index.DefaultAlpha >= 1 {
		cfg.Index.DefaultAlpha = 0.01
	}
	if cfg.Index.HNSWM <= 0 {
		cfg.Index.HNSWM = 16
	}
	if cfg.Index.HNSWEfSearch <= 0 {
		cfg.Index.HNSWEfSearch = 200
	}
	if cfg.Storage.WriteBufferSize <= 0 {
		cfg.Storage.WriteBufferSize = 5000
	}
	if cfg.Storage.BatchSize <= 0 {
		cfg.Storage.BatchSize = 500
	}
}
