package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/execgate/internal/model"
)

// ConfigYAMLRepository loads gateway and router configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetGatewayConfig loads a gateway configuration from a YAML file and returns a validated domain model.
func (r *ConfigYAMLRepository) GetGatewayConfig(ctx context.Context, path string) (model.GatewayConfig, error) {
	var cfg GatewayConfig
	if err := r.load(ctx, path, &cfg); err != nil {
		return model.GatewayConfig{}, err
	}

	if err := cfg.validate(); err != nil {
		return model.GatewayConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel(), nil
}

// GetRouterConfig loads a router configuration from a YAML file. Missing
// settings keep the value of model.DefaultRouterConfig.
func (r *ConfigYAMLRepository) GetRouterConfig(ctx context.Context, path string) (model.RouterConfig, error) {
	var cfg RouterConfig
	if err := r.load(ctx, path, &cfg); err != nil {
		return model.RouterConfig{}, err
	}

	if err := cfg.validate(); err != nil {
		return model.RouterConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	m := cfg.toModel()
	if err := m.Validate(); err != nil {
		return model.RouterConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return m, nil
}

func (r *ConfigYAMLRepository) load(ctx context.Context, path string, out any) error {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

// GatewayConfig represents the YAML structure for the gateway configuration.
type GatewayConfig struct {
	Denylist DenylistConfig `yaml:"denylist"`
	WorkDir  string         `yaml:"workdir"`
	Timeout  string         `yaml:"timeout"`
}

// DenylistConfig represents the YAML structure for the denylist configuration.
type DenylistConfig struct {
	ExtraPatterns []string `yaml:"extra_patterns"`
}

func (c GatewayConfig) validate() error {
	if c.WorkDir == "/" {
		return fmt.Errorf("workdir can't be the root directory")
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got: %s", d)
		}
	}

	return nil
}

func (c GatewayConfig) toModel() model.GatewayConfig {
	cfg := model.GatewayConfig{
		ExtraDenylistPatterns: c.Denylist.ExtraPatterns,
		WorkDir:               c.WorkDir,
	}
	if c.Timeout != "" {
		cfg.Timeout, _ = time.ParseDuration(c.Timeout) // Already validated.
	}

	return cfg
}

// RouterConfig represents the YAML structure for the router configuration.
type RouterConfig struct {
	Pools []PoolConfig `yaml:"pools"`
	KV    KVConfig     `yaml:"kv"`
	Image ImageConfig  `yaml:"image"`
	AI    AIConfig     `yaml:"ai"`
}

// PoolConfig represents the YAML structure for an instance pool.
type PoolConfig struct {
	Name        string   `yaml:"name"`
	Prefix      string   `yaml:"prefix"`
	StripPrefix bool     `yaml:"strip_prefix"`
	Instances   []string `yaml:"instances"`
	Replicas    int      `yaml:"replicas"`
}

// KVConfig represents the YAML structure for the kv route.
type KVConfig struct {
	Key string `yaml:"key"`
}

// ImageConfig represents the YAML structure for the image route.
type ImageConfig struct {
	Key    string `yaml:"key"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Fit    string `yaml:"fit"`
	Format string `yaml:"format"`
}

// AIConfig represents the YAML structure for the inference route.
type AIConfig struct {
	Model         string `yaml:"model"`
	DefaultPrompt string `yaml:"default_prompt"`
}

func (c RouterConfig) validate() error {
	for i, p := range c.Pools {
		if p.Name == "" {
			return fmt.Errorf("pool %d: name is required", i)
		}
		if p.Replicas < 0 {
			return fmt.Errorf("pool %s: replicas must not be negative, got: %d", p.Name, p.Replicas)
		}
		if len(p.Instances) == 0 && p.Replicas == 0 {
			return fmt.Errorf("pool %s: instances or replicas are required", p.Name)
		}
		if len(p.Instances) > 0 {
			if err := p.toModel().Validate(); err != nil {
				return fmt.Errorf("pool %s: %w", p.Name, err)
			}
		}
	}

	if c.Image.Width < 0 || c.Image.Height < 0 {
		return fmt.Errorf("image dimensions must not be negative")
	}

	return nil
}

func (p PoolConfig) toModel() model.Pool {
	prefix := p.Prefix
	if prefix == "" {
		prefix = "/" + p.Name
	}

	replicas := p.Replicas
	if replicas == 0 {
		replicas = len(p.Instances)
	}

	return model.Pool{
		Name:        p.Name,
		Prefix:      prefix,
		StripPrefix: p.StripPrefix,
		Instances:   p.Instances,
		Replicas:    replicas,
	}
}

func (c RouterConfig) toModel() model.RouterConfig {
	cfg := model.DefaultRouterConfig()

	if len(c.Pools) > 0 {
		cfg.Pools = make([]model.Pool, 0, len(c.Pools))
		for _, p := range c.Pools {
			cfg.Pools = append(cfg.Pools, p.toModel())
		}
	}

	if c.KV.Key != "" {
		cfg.KVKey = c.KV.Key
	}

	if c.Image.Key != "" {
		cfg.Image.Key = c.Image.Key
	}
	if c.Image.Width > 0 {
		cfg.Image.Width = c.Image.Width
	}
	if c.Image.Height > 0 {
		cfg.Image.Height = c.Image.Height
	}
	if c.Image.Fit != "" {
		cfg.Image.Fit = model.ImageFit(c.Image.Fit)
	}
	if c.Image.Format != "" {
		cfg.Image.Format = c.Image.Format
	}

	if c.AI.Model != "" {
		cfg.AI.Model = c.AI.Model
	}
	if c.AI.DefaultPrompt != "" {
		cfg.AI.DefaultPrompt = c.AI.DefaultPrompt
	}

	return cfg
}
