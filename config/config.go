package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-viper/encoding/ini"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	App = new(Config)

	configPaths = []string{}
	configFile  = ""
	configName  = "config"
	configType  = "ini"

	registeredConfigs = make(map[string]any)
	registeredTypes   = make(map[string]reflect.Type)

	inited  bool
	tempdir string
	mu      sync.RWMutex
	cv      *viper.Viper
)

// Config is the process-wide configuration tree. Per-database settings are
// NOT part of this struct: a DatabaseConfig is built programmatically and
// passed to manager.AddDatabase, since connections are added at runtime
// under arbitrary aliases rather than declared upfront in a config file.
// Config only carries the defaults every alias falls back to plus the
// ambient app/logger settings.
type Config struct {
	AppInfo `json:"app" mapstructure:"app" ini:"app" yaml:"app"`
	Logger  `json:"logger" mapstructure:"logger" ini:"logger" yaml:"logger"`
	Pool    `json:"pool" mapstructure:"pool" ini:"pool" yaml:"pool"`
	Cache   `json:"cache" mapstructure:"cache" ini:"cache" yaml:"cache"`
	Locale  `json:"locale" mapstructure:"locale" ini:"locale" yaml:"locale"`
}

// setDefault sets config default values for every section.
func (c *Config) setDefault() {
	c.AppInfo.setDefault()
	c.Logger.setDefault()
	c.Pool.setDefault()
	c.Cache.setDefault()
	c.Locale.setDefault()
}

// Mode is the application run mode.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
	ModeTest Mode = "test"
)

// AppInfo carries process-wide identity and runtime directory settings.
type AppInfo struct {
	Name string `json:"name" mapstructure:"name" ini:"name" yaml:"name" default:"quickdb"`
	Mode Mode   `json:"mode" mapstructure:"mode" ini:"mode" yaml:"mode" default:"dev"`
	// Dir is the base directory rolling log files are written under.
	Dir string `json:"dir" mapstructure:"dir" ini:"dir" yaml:"dir" default:"."`
}

func (a *AppInfo) setDefault() {
	if err := defaults.Set(a); err != nil {
		zap.S().Warnw("failed to set AppInfo default", "error", err)
	}
}

// Logger mirrors the teacher's logger section: level/format/file plus
// lumberjack rolling-file parameters.
type Logger struct {
	Level      string `json:"level" mapstructure:"level" ini:"level" yaml:"level" default:"info"`
	Format     string `json:"format" mapstructure:"format" ini:"format" yaml:"format" default:"json"`
	Encoder    string `json:"encoder" mapstructure:"encoder" ini:"encoder" yaml:"encoder" default:"json"`
	File       string `json:"file" mapstructure:"file" ini:"file" yaml:"file" default:""`
	MaxAge     int    `json:"max_age" mapstructure:"max_age" ini:"max_age" yaml:"max_age" default:"7"`
	MaxSize    int    `json:"max_size" mapstructure:"max_size" ini:"max_size" yaml:"max_size" default:"100"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups" ini:"max_backups" yaml:"max_backups" default:"10"`
}

func (l *Logger) setDefault() {
	if err := defaults.Set(l); err != nil {
		zap.S().Warnw("failed to set Logger default", "error", err)
	}
}

// Pool holds default PoolConfig values a DatabaseConfig falls back to when
// it omits a field.
type Pool struct {
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns" ini:"max_open_conns" yaml:"max_open_conns" default:"10"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns" ini:"max_idle_conns" yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime" ini:"conn_max_lifetime" yaml:"conn_max_lifetime" default:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" mapstructure:"conn_max_idle_time" ini:"conn_max_idle_time" yaml:"conn_max_idle_time" default:"10m"`
	AcquireTimeout  time.Duration `json:"acquire_timeout" mapstructure:"acquire_timeout" ini:"acquire_timeout" yaml:"acquire_timeout" default:"5s"`
	BatchSize       int           `json:"batch_size" mapstructure:"batch_size" ini:"batch_size" yaml:"batch_size" default:"1000"`
}

func (p *Pool) setDefault() {
	if err := defaults.Set(p); err != nil {
		zap.S().Warnw("failed to set Pool default", "error", err)
	}
}

// Cache holds default L1/L2 cache settings a DatabaseConfig falls back to.
type Cache struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled" ini:"enabled" yaml:"enabled" default:"true"`
	Policy   string        `json:"policy" mapstructure:"policy" ini:"policy" yaml:"policy" default:"lru"`
	Capacity int           `json:"capacity" mapstructure:"capacity" ini:"capacity" yaml:"capacity" default:"10000"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl" ini:"ttl" yaml:"ttl" default:"5m"`

	L2Enabled          bool   `json:"l2_enabled" mapstructure:"l2_enabled" ini:"l2_enabled" yaml:"l2_enabled" default:"false"`
	L2Path             string `json:"l2_path" mapstructure:"l2_path" ini:"l2_path" yaml:"l2_path" default:""`
	L2CompressionCodec string `json:"l2_compression_codec" mapstructure:"l2_compression_codec" ini:"l2_compression_codec" yaml:"l2_compression_codec" default:"lz4"`
	L2CompressionMinKB int    `json:"l2_compression_min_kb" mapstructure:"l2_compression_min_kb" ini:"l2_compression_min_kb" yaml:"l2_compression_min_kb" default:"4"`
}

func (c *Cache) setDefault() {
	if err := defaults.Set(c); err != nil {
		zap.S().Warnw("failed to set Cache default", "error", err)
	}
}

// Locale holds a default locale name. quickdberr does not read it: its
// locale comes from the QUICKDB_LOCALE environment variable.
type Locale struct {
	Default string `json:"default" mapstructure:"default" ini:"default" yaml:"default" default:"en"`
}

func (l *Locale) setDefault() {
	if err := defaults.Set(l); err != nil {
		zap.S().Warnw("failed to set Locale default", "error", err)
	}
}

// Init initializes the application configuration.
//
// Configuration priority (from highest to lowest):
// 1. Environment variables
// 2. Configuration file
// 3. Default values
func Init() (err error) {
	// Create temp directory if not in test.
	if flag.Lookup("test.v") == nil {
		if tempdir, err = os.MkdirTemp("", "quickdb_"); err != nil {
			return errors.Wrap(err, "failed to create temp dir")
		}
		// logger not initialized yet, use fmt.Println instead.
		fmt.Fprintf(os.Stdout, "create temp dir: %s\n", tempdir)
	}

	// Breaking change:
	// https://github.com/spf13/viper/blob/master/UPGRADE.md#breaking-hcl-java-properties-ini-removed-from-core
	codecRegistry := viper.NewCodecRegistry()
	if err = codecRegistry.RegisterCodec("ini", ini.Codec{}); err != nil {
		return err
	}
	cv = viper.NewWithOptions(viper.WithCodecRegistry(codecRegistry))
	cv.AutomaticEnv()
	cv.AllowEmptyEnv(true)
	cv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values before unmarshaling.
	App = new(Config)
	App.setDefault()

	if len(configFile) > 0 {
		cv.SetConfigFile(configFile)
	} else {
		cv.SetConfigName(configName)
		cv.SetConfigType(configType)
	}
	cv.AddConfigPath(".")
	cv.AddConfigPath("/etc/")
	for _, path := range configPaths {
		cv.AddConfigPath(path)
	}

	if err = cv.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Only create config file if not in test.
			if flag.Lookup("test.v") == nil {
				if err = os.WriteFile(filepath.Join(tempdir, fmt.Sprintf("%s.%s", configName, configType)), nil, 0o600); err != nil {
					return errors.Wrap(err, "failed to create config file")
				}
			}
		} else {
			return errors.Wrap(err, "failed to read config file")
		}
	}
	if err = cv.Unmarshal(App); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	for name, typ := range registeredTypes {
		registerType(name, typ)
	}
	inited = true

	return nil
}

func Clean() {
	if err := os.RemoveAll(tempdir); err != nil {
		zap.S().Errorw("failed to remove temp dir", "error", err, "dir", tempdir)
	} else {
		zap.S().Infow("successfully remove temp dir", "dir", tempdir)
	}
}

func Tempdir() string {
	return tempdir
}

// Register registers a custom configuration into the config system.
// The type parameter T can be either a struct type or a pointer to a
// struct type. If T is not a struct or pointer to struct, the registration
// is skipped silently.
//
// Configuration values are loaded in priority order (highest to lowest):
// 1. Environment variables (format: SECTION_FIELD, e.g. DISPATCH_TIMEOUT)
// 2. Configuration file values
// 3. Default values from struct tags
//
// Register can be called before or after Init. If called before Init, the
// registration is processed during initialization.
func Register[T any]() {
	mu.Lock()
	defer mu.Unlock()

	var t T
	typ := reflect.TypeOf(t)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	// Skip if not a struct type.
	if typ.Kind() != reflect.Struct {
		return
	}

	cfgName := strings.ToLower(typ.Name())

	if inited {
		registerType(cfgName, typ)
	} else {
		registeredTypes[cfgName] = typ
	}
}

func registerType(name string, typ reflect.Type) {
	name = strings.ToLower(name)

	// Set default value from struct tag "default".
	cfg := reflect.New(typ).Interface()
	if err := defaults.Set(cfg); err != nil {
		zap.S().Warnw("failed to set default value", "name", name, "type", typ, "error", err)
	}
	// NOTE: package "defaults" does not support setting default values for
	// time.Duration, so set it manually.
	setDefaultDurationFields(typ, reflect.ValueOf(cfg).Elem())

	// Set config value from config file.
	if err := cv.UnmarshalKey(name, cfg); err != nil {
		zap.S().Warnw("failed to unmarshal config", "name", name, "type", typ, "error", err)
	}

	// Set config value from environment variables.
	envCfg := reflect.New(typ).Interface()
	envPrefix := strings.ToUpper(name) + "_"
	v := reflect.ValueOf(envCfg).Elem()
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		mapstructureTag := field.Tag.Get("mapstructure")
		if len(mapstructureTag) == 0 {
			continue
		}
		envKey := envPrefix + strings.ToUpper(mapstructureTag)
		if envVal, exists := os.LookupEnv(envKey); exists {
			fieldVal := v.Field(i)
			switch fieldVal.Kind() {
			case reflect.String:
				fieldVal.SetString(envVal)
			case reflect.Bool:
				boolVal, err := strconv.ParseBool(envVal)
				if err == nil {
					fieldVal.SetBool(boolVal)
				}
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if field.Type == reflect.TypeFor[time.Duration]() {
					if duration, err := time.ParseDuration(envVal); err == nil {
						fieldVal.SetInt(int64(duration))
					}
				} else {
					if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
						fieldVal.SetInt(intVal)
					}
				}
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				if uintVal, err := strconv.ParseUint(envVal, 10, 64); err == nil {
					fieldVal.SetUint(uintVal)
				}
			case reflect.Float32, reflect.Float64:
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					fieldVal.SetFloat(floatVal)
				}
			}
		}
	}
	mergeNonZeroFields(reflect.ValueOf(cfg).Elem(), v)

	registeredConfigs[name] = cfg
}

func setDefaultDurationFields(typ reflect.Type, val reflect.Value) {
	if typ.Kind() != reflect.Struct {
		return
	}
	for i := range typ.NumField() {
		fieldTyp := typ.Field(i)
		fieldVal := val.Field(i)

		// Handle embedded structs.
		if fieldTyp.Anonymous && fieldTyp.Type.Kind() == reflect.Struct {
			setDefaultDurationFields(fieldTyp.Type, fieldVal)
			continue
		}

		// Handle time.Duration field.
		if fieldTyp.Type == reflect.TypeFor[time.Duration]() {
			if defaultValue, ok := fieldTyp.Tag.Lookup("default"); ok && fieldVal.Interface().(time.Duration) == 0 { //nolint:errcheck
				if duration, err := time.ParseDuration(defaultValue); err == nil {
					fieldVal.Set(reflect.ValueOf(duration))
				} else {
					zap.S().Warnw("failed to parse duration default value",
						"field", fieldTyp.Name,
						"default", defaultValue,
						"error", err)
				}
			}
		}

		// Recursively process nested structs (if not embedded).
		if fieldTyp.Type.Kind() == reflect.Struct && !fieldTyp.Anonymous {
			setDefaultDurationFields(fieldTyp.Type, fieldVal)
		}

		// Handle pointer to struct.
		if fieldTyp.Type.Kind() == reflect.Pointer && fieldTyp.Type.Elem().Kind() == reflect.Struct {
			if fieldVal.IsNil() {
				fieldVal.Set(reflect.New(fieldTyp.Type.Elem()))
			}
			setDefaultDurationFields(fieldTyp.Type.Elem(), fieldVal.Elem())
		}
	}
}

func mergeNonZeroFields(dst, src reflect.Value) {
	for i := range src.NumField() {
		srcField := src.Field(i)
		if !isZeroValue(srcField) {
			dst.Field(i).Set(srcField)
		}
	}
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// Get returns the registered custom configuration.
// The type parameter T must match the registered type or be a pointer to
// it, otherwise a zero value or nil pointer is returned.
func Get[T any]() (t T) {
	mu.RLock()
	defer mu.RUnlock()

	var temp T
	typ := reflect.TypeOf(temp)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return t
	}
	cfgName := strings.ToLower(typ.Name())

	config, exists := registeredConfigs[cfgName]
	if !exists {
		zap.S().Warnw("config not found", "name", cfgName)
		return t
	}

	storedVal := reflect.ValueOf(config)
	storedTyp := storedVal.Elem().Type()
	destTyp := reflect.TypeOf(t)

	if storedTyp == destTyp {
		return storedVal.Elem().Interface().(T) //nolint:errcheck
	}
	if destTyp.Kind() == reflect.Pointer {
		if storedTyp == destTyp.Elem() {
			return storedVal.Interface().(T) //nolint:errcheck
		}
	}

	zap.S().Warnw("config type mismatch", "name", cfgName, "stored", storedTyp.Name(), "dest", destTyp.Name())
	return t
}

// SetConfigFile sets the config file path. Call before Init.
func SetConfigFile(file string) {
	mu.Lock()
	defer mu.Unlock()
	configFile = file
}

// SetConfigName sets the config file name, default "config". Call before Init.
func SetConfigName(name string) {
	mu.Lock()
	defer mu.Unlock()
	configName = name
}

// SetConfigType sets the config file type, default "ini". Call before Init.
func SetConfigType(typ string) {
	mu.Lock()
	defer mu.Unlock()
	configType = typ
}

// AddPath adds a custom config search path. Default: ".", "/etc". Call before Init.
func AddPath(paths ...string) {
	mu.Lock()
	defer mu.Unlock()
	configPaths = append(configPaths, paths...)
}

// Save writes the config instance to the destination io.Writer.
func Save(out io.Writer) error {
	return cv.WriteConfigTo(out)
}
