// Package file provides file-based implementations of driven port interfaces.
// These adapters read and persist data on the local filesystem.
//
// Adapters:
//   - Load/Save: TOML configuration with .env and environment overrides
//   - PromptStore: user-editable prompt templates
package file
