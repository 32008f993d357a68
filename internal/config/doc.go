// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for quill.
//
// Configuration is read from ~/.quill/config.toml with built-in defaults
// and QUILL_* environment variable overrides. Saves are atomic and files
// are kept at 0600. A Watcher can reload the file on change so edits take
// effect without restarting the client.
package config
