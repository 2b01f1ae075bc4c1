package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 64 * 1024

// CameraConfig selects the camera and the native driver.
// Empty Model and Port mean "first detected camera".
type CameraConfig struct {
	Model         string `yaml:"model"`                                                      // glob, e.g. "Canon*"
	Port          string `yaml:"port"`                                                       // glob, e.g. "usb:*"
	MockCamera    bool   `yaml:"mock_camera"`                                                // use the simulated camera (dev/test)
	WaitTimeoutMs int    `yaml:"wait_timeout_ms" default:"2000" validate:"min=1,max=600000"` // per-event wait
}

// DownloadConfig controls where captured files go.
type DownloadConfig struct {
	Dir         string `yaml:"dir" default:"captures" validate:"required"`
	DeleteAfter bool   `yaml:"delete_after"` // remove from the card once downloaded
}

// GPIOConfig describes the shutter button rig (BCM numbering).
type GPIOConfig struct {
	MockGPIO   bool `yaml:"mock_gpio"`                                                      // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	ButtonPin  int  `yaml:"button_pin" default:"17" validate:"min=1,max=27,nefield=LEDPin"` // input, pulled down, HIGH when pressed
	LEDPin     int  `yaml:"led_pin" validate:"min=0,max=27"`                                // busy LED output. 0 = not used
	DebounceMs int  `yaml:"debounce_ms" default:"50" validate:"min=1,max=5000"`
	PollMs     int  `yaml:"poll_ms" default:"10" validate:"min=1,max=1000"`
}

// WebConfig configures the HTTP surface.
// A zero ChangeThreshold or FrameMs takes the default.
type WebConfig struct {
	Port            int `yaml:"port" default:"8080" validate:"port"`
	FrameMs         int `yaml:"frame_ms" default:"100" validate:"min=10,max=10000"`   // live-view period
	ChangeThreshold int `yaml:"change_threshold" default:"1" validate:"min=1,max=64"` // average-hash bits a frame must differ by
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level" validate:"min=0,max=4"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Download DownloadConfig `yaml:"download"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	// Tags are static; Set only fails on malformed tags.
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Load reads a YAML file, fills missing values with defaults and
// validates the result.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ValidateConfigPath accepts only .yaml files directly inside a
// directory named "configs", with no ".." elements.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("port", port); err != nil {
		panic(err)
	}
	return v
}

// Port type validation.
func port(fl validator.FieldLevel) bool {
	p := fl.Field().Int()
	return p > 0 && p <= 65535
}

// Validate checks every field constraint and reports all violations.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, e.Tag(), e.Param(), e.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s (got %v)", field, e.Tag(), e.Value()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// WaitTimeout returns the per-event wait timeout.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Camera.WaitTimeoutMs) * time.Millisecond
}

// Debounce returns how long the button must stay pressed.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.GPIO.DebounceMs) * time.Millisecond
}

// PollInterval returns the button sampling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.GPIO.PollMs) * time.Millisecond
}

// FrameInterval returns the live-view stream period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Web.FrameMs) * time.Millisecond
}

// WebAddr returns the listen address of the HTTP server.
func (c *Config) WebAddr() string {
	return fmt.Sprintf(":%d", c.Web.Port)
}
