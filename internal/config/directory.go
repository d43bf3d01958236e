package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DirectorySettings tunes how directory records are projected locally.
type DirectorySettings struct {
	PageSize        int           `mapstructure:"pageSize"`
	AdminRoleValue  string        `mapstructure:"adminRoleValue"`
	PlaceholderName string        `mapstructure:"placeholderName"`
	RoleCacheTTL    time.Duration `mapstructure:"roleCacheTTL"`
}

func DefaultDirectorySettings() DirectorySettings {
	return DirectorySettings{
		PageSize:        100,
		AdminRoleValue:  "admin",
		PlaceholderName: "User",
		RoleCacheTTL:    time.Minute,
	}
}

type DirectoryConfigHolder struct {
	current atomic.Value // holds DirectorySettings
}

// NewStaticDirectoryConfigHolder returns a holder that never reloads.
func NewStaticDirectoryConfigHolder(settings DirectorySettings) *DirectoryConfigHolder {
	holder := &DirectoryConfigHolder{}
	holder.current.Store(settings)
	return holder
}

func NewDirectoryConfigHolder() (*DirectoryConfigHolder, error) {
	return newDirectoryConfigHolder("/etc/creditdesk", ".")
}

func newDirectoryConfigHolder(paths ...string) (*DirectoryConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("directory")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("CREDITDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDirectorySettings()
	v.SetDefault("directory.pageSize", defaults.PageSize)
	v.SetDefault("directory.adminRoleValue", defaults.AdminRoleValue)
	v.SetDefault("directory.placeholderName", defaults.PlaceholderName)
	v.SetDefault("directory.roleCacheTTL", defaults.RoleCacheTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg DirectorySettings
	if err := v.UnmarshalKey("directory", &cfg); err != nil {
		return nil, err
	}
	if err := validateDirectorySettings(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticDirectoryConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DirectorySettings
		if err := v.UnmarshalKey("directory", &updated); err != nil {
			log.Printf("[directory-config] reload failed: %v", err)
			return
		}
		if err := validateDirectorySettings(updated); err != nil {
			log.Printf("[directory-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[directory-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *DirectoryConfigHolder) Get() DirectorySettings {
	if h == nil {
		return DefaultDirectorySettings()
	}
	return h.current.Load().(DirectorySettings)
}

func validateDirectorySettings(cfg DirectorySettings) error {
	if cfg.PageSize <= 0 || cfg.PageSize > 500 {
		return errors.New("directory.pageSize must be between 1 and 500")
	}
	if strings.TrimSpace(cfg.AdminRoleValue) == "" {
		return errors.New("directory.adminRoleValue cannot be empty")
	}
	if strings.TrimSpace(cfg.PlaceholderName) == "" {
		return errors.New("directory.placeholderName cannot be empty")
	}
	if cfg.RoleCacheTTL < 0 {
		return errors.New("directory.roleCacheTTL cannot be negative")
	}
	return nil
}
