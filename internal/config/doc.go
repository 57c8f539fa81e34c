// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for patentchat.
//
// TOML, JSON and YAML files are supported, with defaults, environment
// variable overrides and validation.
//
// # Key Types
//
//   - Config: complete configuration
//   - ServerConfig: backend URL, token, timeouts and rate limit
//   - CacheConfig: cache backend, directory and session list TTL
//   - UIConfig: theme, watchdog and layout
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PATENTCHAT_*)
//   - ~/.patentchat/config.toml
//   - ~/.patentchat/config.json
//   - ~/.patentchat/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Printf("CONFIG_LOAD_FAILED | error=%v", err)
//	}
//	gw := gateway.New(cfg.Server.URL).WithSendTimeout(cfg.SendTimeout())
package config
