package macromem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-macromem/pkg/bootstrap"
	"github.com/spf13/viper"
)

// Defaults applied by DefaultConfig and Normalize.
const (
	DefaultStorageUnitName = "Memory_Storage"
	DefaultModuleUnitName  = bootstrap.DefaultModuleName
	DefaultAutoImportMode  = string(bootstrap.ModeNever)
)

// Config is the recognized configuration surface.
type Config struct {
	// StorageUnitName names the unit backing the store.
	StorageUnitName string `mapstructure:"storageUnitName" json:"storageUnitName" yaml:"storageUnitName"`
	// ModuleUnitName names the unit implementing this store on the host. It
	// is the import target of the bootstrap snippet and is never patched.
	ModuleUnitName string `mapstructure:"moduleUnitName" json:"moduleUnitName" yaml:"moduleUnitName"`
	// AutoImportMode is one of always, never, activeOnly, customList,
	// customActiveList or rule. Unknown values act as never.
	AutoImportMode string `mapstructure:"autoImportMode" json:"autoImportMode" yaml:"autoImportMode"`
	// AutoImportCustomList is consulted by the custom list modes only.
	AutoImportCustomList []string `mapstructure:"autoImportCustomList" json:"autoImportCustomList" yaml:"autoImportCustomList"`
	AutoImportRule       string   `mapstructure:"autoImportRule" json:"autoImportRule,omitempty" yaml:"autoImportRule,omitempty"`
	AutoImportEngine     string   `mapstructure:"autoImportEngine" json:"autoImportEngine,omitempty" yaml:"autoImportEngine,omitempty"`
	// PropagationConcurrency caps concurrent bootstrap saves; 0 is unbounded.
	PropagationConcurrency int `mapstructure:"propagationConcurrency" json:"propagationConcurrency,omitempty" yaml:"propagationConcurrency,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		StorageUnitName: DefaultStorageUnitName,
		ModuleUnitName:  DefaultModuleUnitName,
		AutoImportMode:  DefaultAutoImportMode,
	}
}

// Normalize trims values and fills blanks from DefaultConfig. The mode is
// left as configured so an unknown value can be reported at propagation.
func (c Config) Normalize() Config {
	defaults := DefaultConfig()
	out := c
	out.StorageUnitName = strings.TrimSpace(c.StorageUnitName)
	if out.StorageUnitName == "" {
		out.StorageUnitName = defaults.StorageUnitName
	}
	out.ModuleUnitName = strings.TrimSpace(c.ModuleUnitName)
	if out.ModuleUnitName == "" {
		out.ModuleUnitName = defaults.ModuleUnitName
	}
	if strings.TrimSpace(c.AutoImportMode) == "" {
		out.AutoImportMode = defaults.AutoImportMode
	}
	out.AutoImportCustomList = nil
	for _, name := range c.AutoImportCustomList {
		if name = strings.TrimSpace(name); name != "" {
			out.AutoImportCustomList = append(out.AutoImportCustomList, name)
		}
	}
	return out
}

func (c Config) bootstrapConfig() bootstrap.Config {
	return bootstrap.Config{
		StorageUnitName: c.StorageUnitName,
		ModuleUnitName:  c.ModuleUnitName,
		Mode:            c.AutoImportMode,
		CustomList:      append([]string(nil), c.AutoImportCustomList...),
		Rule:            c.AutoImportRule,
		Engine:          c.AutoImportEngine,
		Concurrency:     c.PropagationConcurrency,
	}
}

// EnvPrefix prefixes environment overrides, e.g. MACROMEM_AUTOIMPORTMODE.
const EnvPrefix = "MACROMEM"

// LoadConfig reads path (yaml, json or toml, by extension) over the defaults
// and applies environment overrides. An empty path loads defaults and
// environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("storageUnitName", defaults.StorageUnitName)
	v.SetDefault("moduleUnitName", defaults.ModuleUnitName)
	v.SetDefault("autoImportMode", defaults.AutoImportMode)
	v.SetDefault("autoImportCustomList", []string{})
	v.SetDefault("autoImportRule", "")
	v.SetDefault("autoImportEngine", "")
	v.SetDefault("propagationConcurrency", 0)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("macromem: read config %q: %w", path, err)
		}
	}

	// Older configs set the mode as a boolean; weak decoding would turn it
	// into "1" or "0".
	if legacy, ok := v.Get("autoImportMode").(bool); ok {
		v.Set("autoImportMode", strconv.FormatBool(legacy))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("macromem: decode config: %w", err)
	}
	return cfg.Normalize(), nil
}
