// Package validation validates configuration and request structs with
// go-playground/validator tags and reports failures as INVALID_INPUT
// AppErrors.
//
//	type Config struct {
//	    Window int `mapstructure:"window" validate:"min=1,max=1024"`
//	}
//	err := validation.Validate(cfg)
//
// Field names in messages use the mapstructure key, then the json key, so a
// failure reads "scheduler.window: must be at least 1".
package validation
