package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/steelforge/llmbridge/backend"
)

// Catalog joins the backend's installed models with configured
// ModelConfigs and caches the result as a read-mostly snapshot.
type Catalog struct {
	backend         backend.Backend
	configs         []PrefixConfig
	defaultModel    string
	defaultModelTag string
	excluded        map[string]bool

	mu     sync.RWMutex
	models []ChatModel
}

// New builds a Catalog. configs must preserve declaration order: the first
// prefix match wins.
func New(be backend.Backend, configs []PrefixConfig, defaultModel, defaultModelTag string, excludedModels []string) *Catalog {
	excluded := make(map[string]bool, len(excludedModels))
	for _, name := range excludedModels {
		excluded[strings.TrimSpace(name)] = true
	}
	return &Catalog{
		backend:         be,
		configs:         configs,
		defaultModel:    defaultModel,
		defaultModelTag: defaultModelTag,
		excluded:        excluded,
	}
}

// DefaultModel returns the configured default model's full name.
func (c *Catalog) DefaultModel() string { return c.defaultModel }

// Refresh re-queries the backend for installed models, joins each with its
// ModelConfig (dropping unconfigured or excluded models), resolves the
// effective context length, and atomically replaces the cached snapshot.
func (c *Catalog) Refresh(ctx context.Context) error {
	installed, err := c.backend.ListModels(ctx)
	if err != nil {
		return err
	}

	models := make([]ChatModel, 0, len(installed))
	for _, im := range installed {
		if c.excluded[im.Name] {
			continue
		}
		cfg, ok := c.findConfig(im.Name)
		if !ok {
			continue
		}
		base, tag, _ := SplitModelName(im.Name)

		info, err := c.backend.ShowModel(ctx, im.Name)
		if err != nil {
			return err
		}

		models = append(models, ChatModel{
			Name:              im.Name,
			BaseName:          base,
			Tag:               tag,
			ParameterSize:     im.ParameterSize,
			QuantizationLevel: im.QuantizationLevel,
			ContextLength:     resolveContextLength(cfg.ContextLimit, info.ContextLength),
			Config:            cfg,
		})
	}

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
	return nil
}

// List returns the cached snapshot.
func (c *Catalog) List() []ChatModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ChatModel, len(c.models))
	copy(out, c.models)
	return out
}

// Get returns the first installed model whose full name starts with prefix.
func (c *Catalog) Get(prefix string) (ChatModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.models {
		if strings.HasPrefix(m.Name, prefix) {
			return m, true
		}
	}
	return ChatModel{}, false
}

// Exists reports whether fullName is an exact installed-and-configured
// model name.
func (c *Catalog) Exists(fullName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.models {
		if m.Name == fullName {
			return true
		}
	}
	return false
}

// ResolveModelName accepts either an exact catalogue name or a bare model
// name with no tag; in the latter case, if no exact match exists, it tries
// name+":"+default_model_tag before failing.
func (c *Catalog) ResolveModelName(name string) (string, bool) {
	if c.Exists(name) {
		return name, true
	}
	if c.defaultModelTag != "" && !strings.Contains(name, ":") {
		candidate := name + ":" + c.defaultModelTag
		if c.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (c *Catalog) findConfig(fullName string) (*ModelConfig, bool) {
	for _, pc := range c.configs {
		if strings.HasPrefix(fullName, pc.Prefix) {
			return pc.Config, true
		}
	}
	return nil, false
}

func resolveContextLength(limit *int64, backendValue int64) int64 {
	if limit != nil {
		return *limit
	}
	if backendValue != backend.UnknownContextLength {
		return backendValue
	}
	return backend.UnknownContextLength
}
