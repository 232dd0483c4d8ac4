// Package config loads webdrivers settings and driver properties.
//
// # Overview
//
// Settings come from several layers, merged with viper. Lowest precedence
// first:
//
//  1. Built-in defaults
//  2. The Lua config file ($WEBDRIVERS_CONFIG or <user config dir>/webdrivers/config.lua)
//  3. The project-local override file (webdrivers.local.toml)
//  4. Environment variables (WEBDRIVERS_*)
//  5. Command-line flags
//
// Driver properties such as phantomjsBinaryVersion live under the
// "properties" key of every layer. Each property maps to an environment
// variable by upper-casing its camelCase words:
//
//	phantomjsBinaryVersion  ->  WEBDRIVERS_PHANTOMJS_BINARY_VERSION
//
// # Lua Configuration
//
// The Lua file defines a single global table:
//
//	webdrivers = {
//	  cache_dir = "~/.cache/webdrivers",
//	  download_retries = 5,
//	  log = { level = "info", format = "console" },
//	  properties = {
//	    phantomjsBinaryVersion = "2.1.1",
//	    geckodriverBinary = platform.is_linux and "/usr/bin/geckodriver" or nil,
//	  },
//	}
//
// A read-only platform table (os, arch, is_linux, distro, when, ...) is
// injected before the file runs, so a single config can serve several
// machines. Properties that evaluate to nil or false are dropped.
//
// # Sandboxing
//
// Configs run in gopher-lua with only the base, table, string and math
// libraries. os, io, debug, package, require and the file/string loaders
// are removed. Evaluation is bound to the caller's context, and the file
// size, property count and property value length are capped.
//
// # Local Overrides
//
// webdrivers.local.toml holds per-checkout pins that should not be
// committed. It is read and written with go-toml:
//
//	download_retries = 5
//
//	[properties]
//	geckodriverBinaryVersion = "0.34.0"
//
// SetLocalProperty updates a single property in place.
package config
