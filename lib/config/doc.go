// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the why command.
//
// Configuration is loaded from a single file specified by either the
// WHY_CONFIG environment variable (via [Load]) or an explicit path
// (via [LoadFile]). When neither is given, Load falls back to
// $XDG_CONFIG_HOME/why/config.yaml. A missing file is not an error:
// every field has a default, and command-line flags override whatever
// the file says.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${XDG_DATA_HOME:-default} patterns are expanded. No
// other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- the struct with Rules, History, and Watch sections
//   - [Default] -- returns a Config with the built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other why packages.
package config
