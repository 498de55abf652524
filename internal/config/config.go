package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Remote   RemoteConfig   `yaml:"remote"`
	Publish  PublishConfig  `yaml:"publish"`
	Captions CaptionsConfig `yaml:"captions"`
	Features FeaturesConfig `yaml:"features"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Barsky Design"`
	Description string `yaml:"description" default:"Product design case studies and portfolio"`
	Image       string `yaml:"image" default:"/images/social-card.png"`
	BaseURL     string `yaml:"base_url" default:"https://barskydesign.pro"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12700"`
}

type StorageConfig struct {
	// Path of the service database (drafts and published snapshots).
	DatabasePath string `yaml:"database_path" default:"./content.db"`
	// Path of the on-device cache database. Kept separate so clearing or
	// losing the device cache never touches draft or published data.
	DeviceCachePath string `yaml:"device_cache_path" default:"./device-cache.db"`

	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled      bool   `yaml:"enabled" default:"false"`
	Bucket       string `yaml:"bucket" default:""`
	BaseEndpoint string `yaml:"base_endpoint" default:""`
}

type RemoteConfig struct {
	// Endpoint of the hosted content backend the draft adapter talks to.
	// Empty means the adapter runs against this service's own API.
	Endpoint string        `yaml:"endpoint" default:""`
	Timeout  time.Duration `yaml:"timeout" default:"10s"`
}

type PublishConfig struct {
	// PreserveDevChanges keeps the remote draft intact after publishing
	// when a request does not say otherwise.
	PreserveDevChanges bool `yaml:"preserve_dev_changes" default:"false"`
}

type CaptionsConfig struct {
	CommitDebounce  time.Duration `yaml:"commit_debounce" default:"300ms"`
	PublishDebounce time.Duration `yaml:"publish_debounce" default:"1s"`
}

type FeaturesConfig struct {
	Authentication AuthConfig  `yaml:"authentication"`
	DevMode        FeatureFlag `yaml:"dev_mode"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Type    string `yaml:"type" default:"ed25519"`
}

type FeatureFlag struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	AppConfig = config
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch {
		case field.Type() == reflect.TypeOf(time.Duration(0)):
			if val, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(val))
			}
		case field.Kind() == reflect.String:
			field.SetString(defaultValue)
		case field.Kind() == reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case field.Kind() == reflect.Int, field.Kind() == reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case field.Kind() == reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case field.Kind() == reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
