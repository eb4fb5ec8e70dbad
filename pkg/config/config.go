// Package config loads the supervisor's configuration: the listener set,
// process name, stderr path, and logging options. Backed by viper/yaml the
// same way the teacher loads its daemon config, with an SOCKBOSS_ environment
// override prefix.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "sockboss"
	defaultLogLevel   = "info"
)

var (
	mu     sync.Mutex
	loaded *Config
)

// Config is the root configuration the Workerman facade (pkg/supervisor)
// builds a RuntimeContext from.
type Config struct {
	WorkingDir   string         `yaml:"working_dir" mapstructure:"working_dir"`
	Name         string         `yaml:"name" mapstructure:"name"`
	Daemonize    bool           `yaml:"daemonize" mapstructure:"daemonize"`
	StdErrorPath string         `yaml:"std_error_path" mapstructure:"std_error_path"`
	Listeners    []ListenerSpec `yaml:"listeners" mapstructure:"listeners"`
	Log          Log            `yaml:"log" mapstructure:"log"`
}

// ListenerSpec is the on-disk description of one Listener (§3 of the
// design): immutable, user-authored, turned into a pkg/listener.Listener at
// facade construction time.
type ListenerSpec struct {
	Transport   string `yaml:"transport" mapstructure:"transport"`
	Address     string `yaml:"address" mapstructure:"address"`
	Protocol    string `yaml:"protocol" mapstructure:"protocol"`
	Name        string `yaml:"name" mapstructure:"name"`
	WorkerCount int    `yaml:"worker_count" mapstructure:"worker_count"`
	ReusePort   bool   `yaml:"reuse_port" mapstructure:"reuse_port"`
}

type Log struct {
	Level        string `yaml:"level,omitempty" mapstructure:"level,omitempty"`
	FileEnabled  bool   `yaml:"file_enabled" mapstructure:"file_enabled"`
	FilePath     string `yaml:"file_path,omitempty" mapstructure:"file_path,omitempty"`
	FileSize     int    `yaml:"file_size,omitempty" mapstructure:"file_size,omitempty"`
	FileCompress bool   `yaml:"file_compress,omitempty" mapstructure:"file_compress,omitempty"`
	MaxAge       int    `yaml:"max_age,omitempty" mapstructure:"max_age,omitempty"`
	MaxBackups   int    `yaml:"max_backups,omitempty" mapstructure:"max_backups,omitempty"`
}

func setDefaults(v *viper.Viper, workingDir string) {
	v.SetDefault("working_dir", workingDir)
	v.SetDefault("daemonize", false)
	v.SetDefault("log", map[string]any{
		"level":         defaultLogLevel,
		"file_enabled":  true,
		"file_path":     filepath.Join(GetRuntimeDir(workingDir), "sockboss.log"),
		"file_compress": false,
		"file_size":     10,
		"max_age":       7,
		"max_backups":   7,
	})
}

// Get returns the most recently loaded configuration, or nil if Load has
// never been called.
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()
	return loaded
}

// Load reads configFile (or discovers "sockboss.yml" under workingDir,
// workingDir/etc, and ".") into a Config, applying SOCKBOSS_* environment overrides, and
// stores it as the process-wide current config.
func Load(configFile, workingDir string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if workingDir == "" {
		var err error
		workingDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(workingDir)
		v.AddConfigPath(filepath.Join(workingDir, "etc"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SOCKBOSS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v, workingDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = workingDir
	}

	loaded = cfg
	return cfg, nil
}

// GetRuntimeDir returns (creating if necessary) the "tmp" directory under
// cwd where the default log file lives. The pid file and the other
// rendezvous files live in the working directory itself, not here.
func GetRuntimeDir(cwd string) string {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		log.Fatal(err)
	}

	tmp := filepath.Join(abs, "tmp")
	info, err := os.Stat(tmp)
	if err == nil {
		if !info.IsDir() {
			log.Fatal(&os.PathError{Op: "mkdir", Path: tmp, Err: os.ErrExist})
		}
		return tmp
	}
	if err := os.MkdirAll(tmp, 0755); err != nil {
		log.Fatalf("create directory %q: %v", tmp, err)
	}
	return tmp
}

// MasterTitle renders the "<name|'Workerman'> master" process title format
// from §6 of the design.
func MasterTitle(name string) string {
	if name == "" {
		name = "Workerman"
	}
	return name + " master"
}

// WorkerTitle renders the "<listener-name> worker (<id>)" process title
// format from §4.2.
func WorkerTitle(listenerName string, id int) string {
	return fmt.Sprintf("%s worker (%d)", listenerName, id)
}
