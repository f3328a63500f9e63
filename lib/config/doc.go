// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the tickclock daemon configuration.
//
// Configuration comes from exactly one file, named either by the
// TICKCLOCK_CONFIG environment variable ([Load]) or by the --config
// flag ([LoadFile]). There is no search path and no environment
// variable overrides individual settings; what the file says is what
// runs.
//
// The file is YAML. Files ending in .json or .jsonc may also carry
// comments and trailing commas, which are stripped before decoding.
//
// Environment sections (development, staging, production) override the
// base values when [Config].Environment matches. Production without an
// explicit section switches logging to JSON.
//
// ${VAR} and ${VAR:-default} are expanded in the socket and journal
// paths after loading.
package config
