// Package config handles converter configuration loading and management.
package config

// Config holds all converter settings.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Textures  TexturesConfig  `yaml:"textures"`
	Animation AnimationConfig `yaml:"animation"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// OutputConfig holds destination settings for converted assets.
type OutputConfig struct {
	Destination string `yaml:"destination"`
	ShaderDir   string `yaml:"shader_dir"`
}

// TexturesConfig controls how material textures are handled.
type TexturesConfig struct {
	ConvertToDDS bool `yaml:"convert_to_dds"`
	CopySources  bool `yaml:"copy_sources"`
}

// AnimationConfig holds animation import settings.
type AnimationConfig struct {
	// DefaultFPS is used when a clip does not specify a playback rate.
	DefaultFPS float32 `yaml:"default_fps"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Destination: ".",
			ShaderDir:   "shaders",
		},
		Textures: TexturesConfig{
			ConvertToDDS: false,
			CopySources:  true,
		},
		Animation: AnimationConfig{
			DefaultFPS: 25,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
