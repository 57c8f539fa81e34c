// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/jeranaias/patentchat/internal/config"
	"github.com/jeranaias/patentchat/internal/conversation"
	"github.com/jeranaias/patentchat/internal/gateway"
	"github.com/jeranaias/patentchat/internal/storage"
)

// sqliteFileName is the cache database inside the cache directory.
const sqliteFileName = "cache.db"

// app bundles the services every chat command needs.
type app struct {
	cfg      *config.Config
	gw       *gateway.HTTPGateway
	kv       storage.KV
	cache    *storage.ChatCache
	vm       *conversation.ViewModel
	cacheDir string

	closers []func() error
}

// loadConfig reads --config when given, otherwise the default locations.
// A broken default file falls back to defaults with a warning.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFromPath(opts.configPath)
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		log.Printf("CONFIG_FALLBACK | error=%v", err)
	}
	return cfg, nil
}

// newApp wires configuration, gateway, cache and view-model.
func newApp(opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)

	a := &app{cfg: cfg}

	a.gw = gateway.New(cfg.Server.URL).
		WithBasePath(cfg.Server.BasePath).
		WithToken(cfg.Server.Token).
		WithSendTimeout(cfg.SendTimeout()).
		WithReadTimeout(cfg.ReadTimeout()).
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst)

	if err := a.openStore(); err != nil {
		return nil, err
	}

	a.cache = storage.NewChatCache(a.kv, storage.WithTTL(cfg.SessionTTL()))
	a.vm = conversation.New(a.gw, a.cache, conversation.WithWatchdogTimeout(cfg.Watchdog()))
	a.closers = append(a.closers, func() error {
		a.vm.Close()
		return nil
	})

	log.Printf("APP_READY | server=%s backend=%s cache=%s", a.gw.BaseURL(), cfg.Cache.Backend, a.cacheDir)
	return a, nil
}

// openStore opens the configured cache backend.
func (a *app) openStore() error {
	switch a.cfg.Cache.Backend {
	case config.BackendMemory:
		a.kv = storage.NewMemoryKV()
		return nil
	}

	dir, err := a.cfg.CacheDir()
	if err != nil {
		return err
	}
	a.cacheDir = dir

	switch a.cfg.Cache.Backend {
	case config.BackendFile:
		kv, err := storage.NewFileKV(dir)
		if err != nil {
			return fmt.Errorf("failed to open cache directory: %w", err)
		}
		a.kv = kv
	default:
		kv, err := storage.OpenSQLiteKV(filepath.Join(dir, sqliteFileName))
		if err != nil {
			return fmt.Errorf("failed to open cache database: %w", err)
		}
		a.kv = kv
		a.closers = append(a.closers, kv.Close)
	}
	return nil
}

// watchCache reloads the session list when another process writes the file
// cache. It is a no-op for the other backends.
func (a *app) watchCache() {
	if a.cfg.Cache.Backend != config.BackendFile || !a.cfg.Cache.Watch {
		return
	}
	w, err := storage.Watch(a.cacheDir, storage.DefaultWatchDebounce, a.vm.HandleCacheChange)
	if err != nil {
		log.Printf("CACHE_WATCH_FAILED | dir=%s error=%v", a.cacheDir, err)
		return
	}
	a.closers = append(a.closers, w.Close)
}

// storePath describes where the cache lives.
func (a *app) storePath() string {
	switch a.cfg.Cache.Backend {
	case config.BackendMemory:
		return "(memory)"
	case config.BackendFile:
		return a.cacheDir
	default:
		return filepath.Join(a.cacheDir, sqliteFileName)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("APP_CLOSE_FAILED | error=%v", err)
		}
	}
	a.closers = nil
}
