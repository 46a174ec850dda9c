package config

// BuildVersion is set with -ldflags "-X github.com/Lumerin-protocol/proposal-verifier/internal/config.BuildVersion=..."
var BuildVersion = "0.0.0-dev"
