package ai

import (
	"fmt"
	"time"

	"github.com/xxxsen/lexassist/internal/config"
)

// EmbedderWrapper decorates the configured embedder, e.g. with caches.
type EmbedderWrapper func(IEmbedder) IEmbedder

func NewManagerFromConfig(cfg config.AIConfig, wrap EmbedderWrapper) (*Manager, error) {
	providers := make(map[string]IProvider)
	embedProviders := make(map[string]IEmbedProvider)
	for _, pc := range cfg.Providers {
		if pc.Name == "" {
			return nil, fmt.Errorf("ai provider name is required")
		}
		if supportsGenerate(pc.Type) {
			p, err := NewProvider(pc.Type, pc.Data)
			if err != nil {
				return nil, fmt.Errorf("init ai provider %s: %w", pc.Name, err)
			}
			providers[pc.Name] = p
		}
		if supportsEmbed(pc.Type) {
			p, err := NewEmbedProvider(pc.Type, pc.Data)
			if err != nil {
				return nil, fmt.Errorf("init ai embed provider %s: %w", pc.Name, err)
			}
			embedProviders[pc.Name] = p
		}
		if !supportsGenerate(pc.Type) && !supportsEmbed(pc.Type) {
			return nil, fmt.Errorf("unsupported ai provider: %s", pc.Type)
		}
	}

	genEntries := make([]GeneratorEntry, 0, len(cfg.Generator))
	for _, ref := range cfg.Generator {
		p, ok := providers[ref.Provider]
		if !ok {
			return nil, fmt.Errorf("generator provider %s not found or cannot generate", ref.Provider)
		}
		genEntries = append(genEntries, GeneratorEntry{
			Name:      ref.Provider + ":" + ref.Model,
			Generator: NewGenerator(p, ref.Model),
		})
	}
	embEntries := make([]EmbedderEntry, 0, len(cfg.Embedder))
	for _, ref := range cfg.Embedder {
		p, ok := embedProviders[ref.Provider]
		if !ok {
			return nil, fmt.Errorf("embedder provider %s not found or cannot embed", ref.Provider)
		}
		embEntries = append(embEntries, EmbedderEntry{
			Name:     ref.Provider + ":" + ref.Model,
			Embedder: NewEmbedder(p, ref.Model),
		})
	}

	emb := NewGroupEmbedder(embEntries)
	if emb != nil && wrap != nil {
		emb = wrap(emb)
	}
	return NewManager(NewGroupGenerator(genEntries), emb, ManagerConfig{
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}), nil
}
