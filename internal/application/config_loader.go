package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tabroom/internal/ports"
)

// ConfigLoader parses, validates and compiles tournament YAML files.
// Compiled tournaments are cached by the SHA-256 hash of their normalized
// configuration.
type ConfigLoader struct {
	validator *validator.Validate

	// cache holds compiled tournaments keyed by config hash.
	// WARNING: cached tournaments MUST NOT be mutated.
	cache   map[string]*Tournament
	cacheMu sync.RWMutex

	// sf collapses concurrent loads of the same configuration.
	sf singleflight.Group
}

// NewConfigLoader creates a loader with the custom validators registered
// and an empty cache.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &ConfigLoader{
		validator: v,
		cache:     make(map[string]*Tournament),
	}, nil
}

// LoadFromFile loads and compiles a tournament from a YAML file.
// WARNING: the returned tournament may be shared with other callers and
// MUST NOT be mutated.
func (cl *ConfigLoader) LoadFromFile(ctx context.Context, path string) (*Tournament, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.NewConfigError(cleanPath, ports.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return cl.load(ctx, data)
}

// LoadFromReader loads and compiles a tournament from r.
// WARNING: the returned tournament may be shared with other callers and
// MUST NOT be mutated.
func (cl *ConfigLoader) LoadFromReader(ctx context.Context, r io.Reader) (*Tournament, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return cl.load(ctx, data)
}

// ClearCache drops every compiled tournament.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache = make(map[string]*Tournament)
}

func (cl *ConfigLoader) load(ctx context.Context, data []byte) (*Tournament, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Hash the normalized config so formatting differences share an entry.
	hash, err := cl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if t, ok := cl.cached(hash); ok {
			return t, nil
		}

		if err := cl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		t, err := compile(config)
		if err != nil {
			return nil, fmt.Errorf("failed to compile roster: %w", err)
		}

		cl.cacheMu.Lock()
		cl.cache[hash] = t
		cl.cacheMu.Unlock()

		return t, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Tournament), nil
}

// parseYAML decodes data on top of DefaultConfig so omitted options keep
// their defaults. Unknown fields are rejected.
func (cl *ConfigLoader) parseYAML(data []byte) (*TournamentConfig, error) {
	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

func (cl *ConfigLoader) validateConfig(config *TournamentConfig) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// calculateConfigHash hashes the re-encoded configuration.
func (cl *ConfigLoader) calculateConfigHash(config *TournamentConfig) (string, error) {
	normalized, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	h := sha256.Sum256(normalized)
	return hex.EncodeToString(h[:]), nil
}

func (cl *ConfigLoader) cached(hash string) (*Tournament, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	t, ok := cl.cache[hash]
	return t, ok
}
