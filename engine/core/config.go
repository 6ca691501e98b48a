package core

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type ApplicationConfig struct {
	Name      string `toml:"name"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

type PlatformConfig struct {
	// "glfw" or "headless".
	Variant string `toml:"variant"`
}

type FeatureConfig struct {
	SamplerAnisotropy bool `toml:"sampler_anisotropy"`
	FillModeNonSolid  bool `toml:"fill_mode_non_solid"`
	WideLines         bool `toml:"wide_lines"`
}

type DeviceConfig struct {
	// "vulkan" or "null".
	Driver string `toml:"driver"`
	// "first" or "discrete".
	AdapterPolicy      string        `toml:"adapter_policy"`
	Extensions         []string      `toml:"extensions"`
	OptionalExtensions []string      `toml:"optional_extensions"`
	Layers             []string      `toml:"layers"`
	Validation         bool          `toml:"validation"`
	Features           FeatureConfig `toml:"features"`
}

type SwapchainConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
}

type AssetsConfig struct {
	ShaderDir string `toml:"shader_dir"`
	Watch     bool   `toml:"watch"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Platform    PlatformConfig    `toml:"platform"`
	Device      DeviceConfig      `toml:"device"`
	Swapchain   SwapchainConfig   `toml:"swapchain"`
	Assets      AssetsConfig      `toml:"assets"`
	Log         LogConfig         `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:      "vkguard",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Platform: PlatformConfig{Variant: "glfw"},
		Device: DeviceConfig{
			Driver:        "vulkan",
			AdapterPolicy: "first",
			Extensions:    []string{"VK_KHR_swapchain"},
			OptionalExtensions: []string{
				"VK_KHR_portability_subset",
			},
			Validation: true,
			Features:   FeatureConfig{SamplerAnisotropy: true},
		},
		Swapchain: SwapchainConfig{FramesInFlight: 2},
		Assets:    AssetsConfig{ShaderDir: "assets/shaders", Watch: true},
		Log:       LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Platform.Variant {
	case "glfw", "headless":
	default:
		return errors.Errorf("unknown platform variant %q", c.Platform.Variant)
	}
	switch c.Device.Driver {
	case "vulkan", "null":
	default:
		return errors.Errorf("unknown device driver %q", c.Device.Driver)
	}
	switch c.Device.AdapterPolicy {
	case "first", "discrete":
	default:
		return errors.Errorf("unknown adapter policy %q", c.Device.AdapterPolicy)
	}
	if c.Swapchain.FramesInFlight == 0 {
		return errors.New("swapchain.frames_in_flight must be at least 1")
	}
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return errors.New("application size must be non-zero")
	}
	return nil
}
