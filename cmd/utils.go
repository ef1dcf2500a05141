package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/listing"
	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/search"
)

// loadConfig loads the configuration and enables the debug loggers it lists
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.DebugServices) > 0 {
		log.EnableDebugFor(cfg.DebugServices...)
	}
	return cfg, nil
}

// openListing opens the configured backend and wraps it in a listing.
// The caller closes the returned store.
func openListing(ctx context.Context, cfg *config.Config) (*listing.Listing, search.Store, error) {
	store, err := listing.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return listing.New(cfg, store), store, nil
}

// closeStore closes a store, logging failures
func closeStore(store search.Store) {
	if err := store.Close(); err != nil {
		log.ForService("cmd").Warnf("failed to close store: %v", err)
	}
}

// parseAssignments splits name=value pairs.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q, expected name=value", p)
		}
		out[name] = value
	}
	return out, nil
}
