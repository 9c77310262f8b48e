// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	ListenAddr          string  `yaml:"listen_addr"`
	ModelPath           string  `yaml:"model_path"`
	OrtLibrary          string  `yaml:"ort_library"`
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	NMSThreshold        float32 `yaml:"nms_threshold"`
	PoolSize            int     `yaml:"pool_size"`
	Development         bool    `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ListenAddr:          ":8000",
		ModelPath:           "models/yolov5n.onnx",
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.4,
		PoolSize:            2,
	}
}

// Load reads path when it exists and applies environment overrides on top.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("ORT_LIBRARY"); v != "" {
		cfg.OrtLibrary = v
	}
	if v := os.Getenv("POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("DEVELOPMENT"); v != "" {
		cfg.Development = v == "true" || v == "1"
	}
}
