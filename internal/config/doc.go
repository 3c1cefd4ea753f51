// Package config loads, normalizes, and validates vidmint configuration.
//
// Configuration lives in TOML (default ~/.config/vidmint/config.toml, falling
// back to ./vidmint.toml). Default() seeds every section, Load decodes the file
// over it, normalize() expands paths and applies environment overrides
// (NFT_STORAGE_API_KEY, VIDMINT_PRIVATE_KEY, VIDMINT_RPC_URL, VIDMINT_API_TOKEN,
// optionally read from .env files), and Validate() rejects unusable values.
//
// Secrets needed by only some commands are checked on demand through
// RequireSigner and RequireStorageToken so read-only commands keep working
// without them.
package config
