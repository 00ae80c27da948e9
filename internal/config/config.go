package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
)

// DefaultPlaceholder is replaced by the element source in prompt templates.
const DefaultPlaceholder = "!<QUERY COMPLETION>!"

// Config is the whole run configuration. It is built once in main and
// passed down explicitly.
type Config struct {
	Backend     string        `yaml:"backend" validate:"required,backend"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"openai_api_key"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=1"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	Retries     int           `yaml:"retries" validate:"gte=0,lte=10"`
	MockReply   string        `yaml:"mock_reply"`

	Languages []string `yaml:"languages" validate:"dive,required"`
	Elements  []string `yaml:"elements"`
	Exclude   []string `yaml:"exclude"`

	Overwrite      bool   `yaml:"overwrite"`
	Rewrite        bool   `yaml:"rewrite"`
	Surname        string `yaml:"surname" validate:"required_if=Rewrite false"`
	Placeholder    string `yaml:"placeholder" validate:"required"`
	Nesting        string `yaml:"nesting" validate:"oneof=stack outermost"`
	ValidateSyntax bool   `yaml:"validate_syntax"`
	MaxFileSize    int64  `yaml:"max_file_size" validate:"gte=0"`

	// Prompts maps an element kind ("function", "class") to a template file.
	Prompts map[string]string `yaml:"prompts"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig configures the completion cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Size    int    `yaml:"size" validate:"gte=0"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Backend:     "openai",
		Model:       "gpt-4o-mini",
		MaxTokens:   600,
		Temperature: 0,
		Timeout:     30 * time.Second,
		Languages:   []string{"python"},
		Overwrite:   false,
		Rewrite:     true,
		Surname:     "_analysed",
		Placeholder: DefaultPlaceholder,
		Nesting:     "stack",
		MaxFileSize: 1 << 20,
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(Dir(), "cache"),
			Size:    512,
		},
	}
}

// Dir is ~/.fastdoc.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fastdoc")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the default config file.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom decodes path over the defaults and applies environment
// overrides. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv lets environment variables override file values.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.Backend, "FASTDOC_BACKEND")
	setFromEnv(&c.Model, "FASTDOC_MODEL")
	setFromEnv(&c.BaseURL, "BASE_URL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

var validate = newValidator()

// newValidator adds the "backend" tag, which accepts any name registered
// with llm.Register.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("backend", func(fl validator.FieldLevel) bool {
		return slices.Contains(llm.Names(), fl.Field().String())
	})
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
