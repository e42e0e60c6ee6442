package keywords

import (
	"fmt"
)

// configOptions holds optional configuration for LoadConfigFromEnvironment.
type configOptions struct {
	envVar   SettingsEnvVar
	settings EmbeddedSettings
	extra    []SettingsFile
}

// ConfigOption is a functional option for configuring LoadConfigFromEnvironment.
type ConfigOption func(*configOptions)

// ConfigWithEnvVar replaces the process environment as the placeholder source.
func ConfigWithEnvVar(ev SettingsEnvVar) ConfigOption {
	return func(o *configOptions) {
		o.envVar = ev
	}
}

// ConfigWithEmbeddedSettings replaces the settings files compiled into the package.
func ConfigWithEmbeddedSettings(es EmbeddedSettings) ConfigOption {
	return func(o *configOptions) {
		o.settings = es
	}
}

// ConfigWithSettingsFiles layers extra settings files over the defaults, in order.
func ConfigWithSettingsFiles(files ...SettingsFile) ConfigOption {
	return func(o *configOptions) {
		o.extra = append(o.extra, files...)
	}
}

// LoadConfigFromEnvironment reads the embedded defaults, an optional override
// file named by SAKA_SETTINGS_FILE, and validates the expanded result.
func LoadConfigFromEnvironment(opts ...ConfigOption) (Config, error) {
	options := configOptions{
		envVar:   OSEnvVar{},
		settings: DefaultEmbeddedSettings,
	}
	for _, opt := range opts {
		opt(&options)
	}

	defaults, err := options.settings.MustFindDefaultsSettingsFile()
	if err != nil {
		return Config{}, fmt.Errorf("failed to read defaults settings file %w", err)
	}
	sources := []SettingsFile{defaults}

	if name, ok := options.envVar.LookupEnv(EnvSettingsFile); ok && name != "" {
		override, err := ReadSettingsFile(name)
		if err != nil {
			return Config{}, err
		}
		sources = append(sources, override)
	}
	sources = append(sources, options.extra...)

	result, err := YAMLConfigUnmarshaler{}.Unmarshal(options.envVar, sources...)
	if err != nil {
		return result, fmt.Errorf("failed to load config %w", err)
	}
	return result, nil
}
