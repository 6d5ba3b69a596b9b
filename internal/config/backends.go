package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/snarg/stt-bridge/internal/backend"
)

// LoadBackends parses the backends JSON file into a config snapshot.
//
// File shape:
//
//	{
//	  "backend": "whisper",
//	  "whisper": {"model_name": "base.en", "base_dir": "./models", "language": "en", "translate": false},
//	  "vosk": {"model_path": "./models/vosk-model-small-en-us-0.15"}
//	}
func LoadBackends(path string) (backend.Config, error) {
	var cfg backend.Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read backends file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Backend == "" {
		return cfg, fmt.Errorf("%s: missing \"backend\" field", path)
	}
	return cfg, nil
}
