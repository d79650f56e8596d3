package util

import (
	"fmt"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/ValentinKolb/stash/lib/serializer"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/ValentinKolb/stash/lib/store/lstore"
	"github.com/ValentinKolb/stash/lib/store/rstore"
	"github.com/ValentinKolb/stash/lib/store/sqlstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupPersistFlags adds the persistence and backend flags to a command
func SetupPersistFlags(cmd *cobra.Command) {
	defaults := common.DefaultPersistConfig()

	key := "persist-redux"
	cmd.PersistentFlags().Bool(key, defaults.PersistRedux, WrapString("Persist the state tree and rehydrate it on the next start"))

	key = "force-sympathy"
	cmd.PersistentFlags().Bool(key, false, WrapString("(Development) Always discard persisted state on startup. Takes precedence over --no-force-sympathy"))

	key = "no-force-sympathy"
	cmd.PersistentFlags().Bool(key, false, WrapString("(Development) Never discard persisted state on startup"))

	key = "sympathy-probability"
	cmd.PersistentFlags().Float64(key, defaults.SympathyProbability, WrapString("(Development) Chance between 0 and 1 of starting with an empty cache"))

	key = "max-age"
	cmd.PersistentFlags().Duration(key, defaults.MaxAge, WrapString("Persisted state older than this is ignored on startup"))

	key = "throttle"
	cmd.PersistentFlags().Duration(key, defaults.Throttle, WrapString("At most one write per window; changes within the window are written at its end"))

	key = "load-timeout"
	cmd.PersistentFlags().Duration(key, defaults.LoadTimeout, WrapString("Time after which loading persisted state is abandoned"))

	key = "write-timeout"
	cmd.PersistentFlags().Duration(key, defaults.WriteTimeout, WrapString("Timeout of a single write to the backend"))

	key = "backend"
	cmd.PersistentFlags().String(key, string(defaults.Backend), WrapString("Storage backend to use (memory, redis, sqlite)"))

	key = "redis-url"
	cmd.PersistentFlags().String(key, "redis://localhost:6379/0", WrapString("(redis backend) URL of the redis server"))

	key = "sqlite-path"
	cmd.PersistentFlags().String(key, "stash.db", WrapString("(sqlite backend) Path of the database file"))

	key = "serializer"
	cmd.PersistentFlags().String(key, defaults.Serializer, WrapString("Blob encoding to use (json, gob)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("stash")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetPersistConfig reads the persistence configuration from viper
func GetPersistConfig() (common.PersistConfig, error) {
	backend, err := common.ParseBackendType(viper.GetString("backend"))
	if err != nil {
		return common.PersistConfig{}, err
	}

	conf := common.PersistConfig{
		PersistRedux:        viper.GetBool("persist-redux"),
		ForceSympathy:       viper.GetBool("force-sympathy"),
		NoForceSympathy:     viper.GetBool("no-force-sympathy"),
		SympathyProbability: viper.GetFloat64("sympathy-probability"),
		MaxAge:              viper.GetDuration("max-age"),
		Throttle:            viper.GetDuration("throttle"),
		LoadTimeout:         viper.GetDuration("load-timeout"),
		WriteTimeout:        viper.GetDuration("write-timeout"),
		Backend:             backend,
		RedisURL:            viper.GetString("redis-url"),
		SQLitePath:          viper.GetString("sqlite-path"),
		Serializer:          viper.GetString("serializer"),
		LogLevel:            viper.GetString("log-level"),
	}
	if err := conf.Validate(); err != nil {
		return common.PersistConfig{}, err
	}
	return conf, nil
}

// GetStoreFactory returns the factory of the configured backend
func GetStoreFactory(conf common.PersistConfig) (store.Factory, error) {
	switch conf.Backend {
	case common.BackendMemory:
		return lstore.Factory(), nil
	case common.BackendRedis:
		return rstore.Factory(conf.RedisURL, rstore.DefaultPrefix), nil
	case common.BackendSQLite:
		return sqlstore.Factory(conf.SQLitePath), nil
	default:
		return nil, fmt.Errorf("invalid backend %s", conf.Backend)
	}
}

// GetStore opens the configured backend
func GetStore(conf common.PersistConfig) (store.IStore, error) {
	factory, err := GetStoreFactory(conf)
	if err != nil {
		return nil, err
	}
	s, err := factory()
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", conf.Backend, err)
	}
	return s, nil
}

// GetSerializer creates a serializer based on configuration
func GetSerializer(conf common.PersistConfig) (serializer.IBlobSerializer, error) {
	return serializer.New(conf.Serializer)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
