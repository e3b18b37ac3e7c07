// Package config loads the loader and simulated machine configuration from
// defaults, an optional YAML file, a .env file and LEMOLA_ environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/lemolatoon/lemola-os/internal/simfw"
	"github.com/lemolatoon/lemola-os/internal/transition"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// EnvPrefix prefixes every environment override, e.g. LEMOLA_BOOT_KERNEL_PATH.
const EnvPrefix = "LEMOLA"

// Config is the full configuration of one simulated boot.
type Config struct {
	Boot    transition.Config `mapstructure:"boot" json:"boot" yaml:"boot"`
	Machine simfw.Config      `mapstructure:"machine" json:"machine" yaml:"machine"`

	// VolumePath is a host directory served as the boot volume. Empty means
	// an in-memory volume holding only the kernel.
	VolumePath string `mapstructure:"volume_path" json:"volume_path" yaml:"volume_path"`
	// KernelFile is a host file placed at Boot.KernelPath. Empty means a
	// generated stub image.
	KernelFile string `mapstructure:"kernel_file" json:"kernel_file" yaml:"kernel_file"`
	// EnvFile is loaded before the environment is consulted.
	EnvFile string `mapstructure:"env_file" json:"env_file" yaml:"env_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Boot:    transition.DefaultConfig(),
		Machine: simfw.DefaultConfig(),
		EnvFile: ".env",
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("boot.kernel_path", def.Boot.KernelPath)
	v.SetDefault("boot.max_surrender_attempts", def.Boot.MaxSurrenderAttempts)
	v.SetDefault("boot.memory_map_pages", def.Boot.MemoryMapPages)
	v.SetDefault("boot.display", def.Boot.Display)
	v.SetDefault("boot.show_memory_map", def.Boot.ShowMemoryMap)
	v.SetDefault("boot.loader.base", def.Boot.Loader.Base)
	v.SetDefault("boot.loader.entry_offset", def.Boot.Loader.EntryOffset)
	v.SetDefault("boot.loader.max_stalled_reads", def.Boot.Loader.MaxStalledReads)
	v.SetDefault("boot.loader.validate_image", def.Boot.Loader.ValidateImage)
	v.SetDefault("boot.loader.require_entry_match", def.Boot.Loader.RequireEntryMatch)

	v.SetDefault("machine.regions", def.Machine.Regions)
	v.SetDefault("machine.descriptor_size", def.Machine.DescriptorSize)
	v.SetDefault("machine.capacity", def.Machine.Capacity)
	v.SetDefault("machine.read_chunk", def.Machine.ReadChunk)
	v.SetDefault("machine.framebuffer.width", def.Machine.Framebuffer.Width)
	v.SetDefault("machine.framebuffer.height", def.Machine.Framebuffer.Height)
	v.SetDefault("machine.framebuffer.base", def.Machine.Framebuffer.Base)
	v.SetDefault("machine.framebuffer.format", def.Machine.Framebuffer.Format)
	v.SetDefault("machine.image_handle", def.Machine.ImageHandle)

	v.SetDefault("volume_path", "")
	v.SetDefault("kernel_file", "")
	v.SetDefault("env_file", def.EnvFile)
}

// Load reads the configuration. path names a YAML file; when empty,
// lemola.yaml is looked up in the working directory, ./config and
// $HOME/.lemola, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lemola")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.lemola")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// The .env file may itself be named by the config file, so it is read
	// after the file but before the environment is unmarshalled.
	if envFile := v.GetString("env_file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	var config Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		memoryTypeHook,
		pixelFormatHook,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&config, hook); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the loader cannot run with.
func (c *Config) Validate() error {
	if c.Boot.KernelPath == "" {
		return errors.New("boot.kernel_path must not be empty")
	}
	if c.Boot.MaxSurrenderAttempts <= 0 {
		return fmt.Errorf("boot.max_surrender_attempts must be positive, got %d", c.Boot.MaxSurrenderAttempts)
	}
	if c.Boot.MemoryMapPages <= 0 {
		return fmt.Errorf("boot.memory_map_pages must be positive, got %d", c.Boot.MemoryMapPages)
	}
	if c.Boot.Loader.Base%types.PageSize != 0 {
		return fmt.Errorf("boot.loader.base %#x is not page aligned", c.Boot.Loader.Base)
	}
	if c.Machine.DescriptorSize != 0 && c.Machine.DescriptorSize < types.MemoryDescriptorSize {
		return fmt.Errorf("machine.descriptor_size %d is smaller than %d", c.Machine.DescriptorSize, types.MemoryDescriptorSize)
	}
	if c.Machine.ReadChunk < 0 {
		return fmt.Errorf("machine.read_chunk must not be negative, got %d", c.Machine.ReadChunk)
	}
	return nil
}

// memoryTypeHook accepts memory types by name, e.g. "EfiConventionalMemory".
func memoryTypeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(types.MemoryType(0)) || isNumber(data) {
		return data, nil
	}
	return types.ParseMemoryType(data.(string))
}

// pixelFormatHook accepts "rgb" and "bgr".
func pixelFormatHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(types.PixelFormat(0)) || isNumber(data) {
		return data, nil
	}
	switch strings.ToLower(data.(string)) {
	case "rgb", "rgbx":
		return types.PixelRedGreenBlueReserved8BitPerColor, nil
	case "bgr", "bgrx":
		return types.PixelBlueGreenRedReserved8BitPerColor, nil
	}
	return nil, fmt.Errorf("unknown pixel format %q", data)
}

func isNumber(data any) bool {
	_, err := strconv.ParseUint(data.(string), 0, 32)
	return err == nil
}
