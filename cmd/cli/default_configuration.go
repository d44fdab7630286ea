package cli

import (
	"bytes"
	_ "embed"
)

// defaultConfigurationDocument holds the built-in logging, storage and checkpoint settings.
//
//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// EmbeddedDefaultConfiguration returns a copy of the built-in configuration together with its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}
