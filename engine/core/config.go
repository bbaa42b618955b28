package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	Name     string   `toml:"name"`
	StartX   int      `toml:"x"`
	StartY   int      `toml:"y"`
	Width    int      `toml:"width"`
	Height   int      `toml:"height"`
	LogLevel LogLevel `toml:"log_level"`
}

type RendererConfig struct {
	// Validation enables the Khronos validation layer and the debug report callback.
	Validation       bool       `toml:"validation"`
	PreferLowLatency bool       `toml:"prefer_low_latency"`
	ClearColor       [4]float32 `toml:"clear_color"`
	// Wireframe needs the fillModeNonSolid device feature.
	Wireframe bool `toml:"wireframe"`
}

type AssetsConfig struct {
	ShaderDir      string `toml:"shader_dir"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
	// Texture is optional, an empty path selects the generated checkerboard.
	Texture   string `toml:"texture"`
	HotReload bool   `toml:"hot_reload"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetsConfig      `toml:"assets"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "vkframe",
			StartX:   100,
			StartY:   100,
			Width:    1280,
			Height:   720,
			LogLevel: LogLevelInfo,
		},
		Renderer: RendererConfig{
			Validation:       false,
			PreferLowLatency: true,
			ClearColor:       [4]float32{0.0, 0.0, 0.2, 1.0},
		},
		Assets: AssetsConfig{
			ShaderDir:      "assets/shaders",
			VertexShader:   "shader.vert.spv",
			FragmentShader: "shader.frag.spv",
			HotReload:      true,
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. A missing file is not
// an error, the defaults are returned as they are.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes data into cfg and validates the result.
func ParseConfig(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Application.Width <= 0 || c.Application.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrConfigInvalid, c.Application.Width, c.Application.Height)
	}
	switch c.Application.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrConfigInvalid, c.Application.LogLevel)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: clear_color[%d]=%f out of [0,1]", ErrConfigInvalid, i, v)
		}
	}
	if c.Assets.VertexShader == "" || c.Assets.FragmentShader == "" {
		return fmt.Errorf("%w: vertex and fragment shaders are required", ErrConfigInvalid)
	}
	return nil
}
