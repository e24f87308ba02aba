// Package config handles fizz.toml project configuration and shared
// engine limits.
package config

// File extensions recognized by the toolchain.
const (
	SourceExt = ".fz"
	BundleExt = ".fzb"
)

// ManifestName is the project configuration file looked up from the
// working directory upward.
const ManifestName = "fizz.toml"

// Engine limits.
const (
	// MaxSourceSize caps how much script source a single load will read.
	MaxSourceSize = 16 << 20

	// MaxBundleSize caps the size of a compiled bundle on load.
	MaxBundleSize = 64 << 20
)
