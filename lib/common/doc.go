// Package common provides the configuration and logging shared by every
// stash package.
//
// Key Components:
//
//   - PersistConfig: All tunables of the persistence layer (feature flags,
//     sympathy probability, max age, throttle window, timeouts, backend
//     selection). DefaultPersistConfig returns the production defaults and
//     String renders the configuration as an aligned table for the CLI.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger package. Packages obtain their logger with
//     logger.GetLogger(common.LoggerPersist) (or LoggerStore, LoggerCLI) and
//     InitLoggers applies the configured level to all of them.
package common
