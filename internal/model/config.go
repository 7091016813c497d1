package model

import (
	"fmt"
	"time"
)

// GatewayConfig is the configuration of the command execution gateway.
type GatewayConfig struct {
	// ExtraDenylistPatterns are appended to the default denylist.
	ExtraDenylistPatterns []string
	WorkDir               string
	Timeout               time.Duration
}

// ImageFit is how an image is fitted into the requested dimensions.
type ImageFit string

const (
	ImageFitCover     ImageFit = "cover"
	ImageFitContain   ImageFit = "contain"
	ImageFitScaleDown ImageFit = "scale-down"
)

// Valid returns true if the fit is known.
func (f ImageFit) Valid() bool {
	switch f {
	case ImageFitCover, ImageFitContain, ImageFitScaleDown:
		return true
	}
	return false
}

// ImageConfig is the configuration of the image platform route.
type ImageConfig struct {
	Key    string
	Width  int
	Height int
	Fit    ImageFit
	Format string
}

// AIConfig is the configuration of the inference platform route.
type AIConfig struct {
	Model         string
	DefaultPrompt string
}

// RouterConfig is the configuration of the front-door router.
type RouterConfig struct {
	Pools []Pool
	KVKey string
	Image ImageConfig
	AI    AIConfig
}

// DefaultRouterConfig returns the router configuration used when no config file is provided.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Pools: []Pool{
			{
				Name:      "backend",
				Prefix:    "/api",
				Instances: []string{"http://127.0.0.1:9001", "http://127.0.0.1:9002"},
				Replicas:  2,
			},
		},
		KVKey: "demo-key",
		Image: ImageConfig{
			Key:    "ai-generated/1746948849155-zjng9a.jpg",
			Width:  100,
			Height: 100,
			Fit:    ImageFitCover,
			Format: "avif",
		},
		AI: AIConfig{
			Model:         "@cf/meta/llama-3.1-8b-instruct",
			DefaultPrompt: "What is the origin of the phrase Hello, World?",
		},
	}
}

// Validate validates the router config. Pool instances are validated separately
// because managed pools only get them once their containers are running.
func (c RouterConfig) Validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool is required: %w", ErrNotValid)
	}

	names := map[string]bool{}
	prefixes := map[string]bool{}
	for _, p := range c.Pools {
		if names[p.Name] {
			return fmt.Errorf("pool %s is duplicated: %w", p.Name, ErrAlreadyExists)
		}
		if prefixes[p.Prefix] {
			return fmt.Errorf("pool prefix %s is duplicated: %w", p.Prefix, ErrAlreadyExists)
		}
		names[p.Name] = true
		prefixes[p.Prefix] = true
	}

	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		return fmt.Errorf("image dimensions must be positive: %w", ErrNotValid)
	}
	if !c.Image.Fit.Valid() {
		return fmt.Errorf("unknown image fit %q: %w", c.Image.Fit, ErrNotValid)
	}

	return nil
}
