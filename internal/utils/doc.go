// Package utils exposes reusable helpers consumed by the loki-migrate commands.
//
// ConfigurationLoader layers embedded defaults, an optional configuration file,
// and LOKIMIGRATE_ prefixed environment variables through Viper. LoggerFactory
// builds the zap loggers every command shares.
package utils
