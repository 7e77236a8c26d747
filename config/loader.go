package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrCreate loads path, writing a default file first when none exists.
func LoadOrCreate(path string) (*Config, error) {
	_, err := os.Stat(path)
	if errors.Is(err, iofs.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	g := cfg.Generation
	if g.Temperature < 0 || g.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generation.temperature %.2f is out of range [0, 2]", g.Temperature))
	}
	if g.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("generation.max_tokens %d must not be negative", g.MaxTokens))
	}
	if !g.ImageDetail.IsValid() {
		errs = append(errs, fmt.Errorf("generation.image_detail %q is invalid; valid values: low, high", g.ImageDetail))
	}

	names := make(map[string]int, len(cfg.CustomServers))
	for i, srv := range cfg.CustomServers {
		prefix := fmt.Sprintf("custom_servers[%d]", i)
		if srv.Name != "" {
			if prev, ok := names[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of custom_servers[%d]", prefix, srv.Name, prev))
			}
			names[srv.Name] = i
		}
		if u, err := url.Parse(srv.BaseURL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s.base_url %q must be an absolute http(s) URL", prefix, srv.BaseURL))
		}
		if len(srv.Models) == 0 {
			errs = append(errs, fmt.Errorf("%s.models must list at least one model", prefix))
		}
	}

	return errors.Join(errs...)
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("config: create directories: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}
