// Package config provides configuration management using Viper.
//
// Loads and validates the project's TOML configuration ([memory],
// [memory.document], [memory.database]) with support for multiple config
// locations and hard-coded defaults when no file is present.
package config
