package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/groundguard-io/groundguard/pkg/log"
)

const configFlagName = "config"

var configFile string

// addConfigFlag registers the --config flag on the given FlagSet and prepares
// viper to read the named file. The environment prefix is derived from the
// binary name (dashes become underscores).
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringVarP(&configFile, configFlagName, "c", "",
		"Path to a YAML configuration file. Flag values take precedence over file values.")

	viper.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(basename), "-", "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// applyConfigFile reads the config file named by --config (if given) and
// unmarshals it into the option aggregate. Values set explicitly on the
// command line win over file values: only flags the user did not change are
// overwritten from the file.
//
// Once loaded, the file is watched: on-disk changes are logged as requiring a
// restart. Configuration is applied only between start/stop cycles; there is
// no live re-apply.
func applyConfigFile(opts CliOptions, fs *pflag.FlagSet) error {
	if configFile == "" {
		return nil
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %q: %w", configFile, err)
	}

	// Record flags the user set explicitly; Unmarshal writes through the same
	// bound variables, so explicit flag values are re-applied afterwards.
	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := viper.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to unmarshal config file %q: %w", configFile, err)
	}

	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("failed to restore flag --%s: %w", name, err)
		}
	}

	log.Info("Loaded configuration file", "path", configFile)

	watchConfigFile(configFile)
	return nil
}

// watchConfigFile logs a warning when the loaded config file changes on disk.
// The watcher lives for the process lifetime.
func watchConfigFile(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("Config file watch unavailable", "err", err)
		return
	}

	// Watch the directory: editors replace files rather than writing in place,
	// which drops a plain file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Warn("Config file watch unavailable", "path", path, "err", err)
		_ = watcher.Close()
		return
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Warn("Configuration file changed on disk; restart to apply", "path", path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Config file watcher error", "err", err)
			}
		}
	}()
}
