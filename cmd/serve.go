package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/gridsearch/pkg/api"
	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/metrics"
	"github.com/rubiojr/gridsearch/pkg/search"
	"github.com/urfave/cli/v3"
)

// In-flight requests may still hold the previous store after a reload.
const storeCloseDelay = 30 * time.Second

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the listing API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides the configured listen address)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

// serve runs the HTTP API until interrupted, reloading the configuration on
// SIGHUP or when the file changes.
func serve(ctx context.Context, configPath, listen string) error {
	logger := log.ForService("serve")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Listen
	}

	l, store, err := openListing(ctx, cfg)
	if err != nil {
		return err
	}
	currentStore := store
	defer func() { closeStore(currentStore) }()

	apiServer := api.NewServer(l)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         listen,
		Handler:      api.CorsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting API server on http://%s (%s backend)", listen, cfg.Backend)
		logger.Infof("  GET /api/search - Search the listing")
		logger.Infof("  GET /api/filters - Describe filters and columns")
		logger.Infof("  GET /health - Health check")
		logger.Infof("  GET /metrics - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	reload := func(reason string) {
		logger.Infof("%s, reloading configuration...", reason)
		newStore, err := reloadListing(ctx, configPath, apiServer)
		metrics.RecordReload(err)
		if err != nil {
			logger.Errorf("Failed to reload configuration: %v", err)
			return
		}
		old := currentStore
		currentStore = newStore
		time.AfterFunc(storeCloseDelay, func() { closeStore(old) })
		logger.Infof("Configuration reloaded successfully")
	}

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("Watching config file for changes: %s", configPath)
			events = watcher.Events
			watchErrors = watcher.Errors
		}
	}

	for {
		select {
		case err := <-serverErr:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
			return shutdown(server)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reload("Received SIGHUP")
				continue
			}
			logger.Infof("Shutting down API server...")
			return shutdown(server)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			// Editors often replace the file instead of writing it in place.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload(fmt.Sprintf("Config file changed (%s)", event.Op))
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			logger.Warnf("Config file watcher error: %v", err)
		}
	}
}

// reloadListing loads the configuration again and swaps the served listing.
// The previous store is left open for the caller to retire.
func reloadListing(ctx context.Context, configPath string, apiServer *api.Server) (search.Store, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading new config: %w", err)
	}
	l, store, err := openListing(ctx, cfg)
	if err != nil {
		return nil, err
	}
	apiServer.Reload(l)
	return store, nil
}

func shutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
