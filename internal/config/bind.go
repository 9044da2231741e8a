package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// validate is shared; validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind decodes flattened values onto a Config and validates it.
func Bind(values Values) (*Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, newConfigError(ErrInvalidConfig, "", err)
	}

	if err := decoder.Decode(values.tree()); err != nil {
		return nil, newConfigError(ErrInvalidConfig, "", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, newConfigError(ErrInvalidConfig, "", err)
	}

	if err := cfg.checkEndpointKeys(); err != nil {
		return nil, newConfigError(ErrInvalidConfig, "", err)
	}

	cfg.values = values.Clone()
	return &cfg, nil
}
