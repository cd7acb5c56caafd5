package config

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report yaml key names instead of Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks struct constraints and the ignore globs.
func Validate(c *Config) error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return ferrors.ValidationError("configuration validation failed").
				WithCause(errors.New(strings.Join(msgs, "; "))).
				WithContext("source", c.source).
				Build()
		}
		return ferrors.ValidationError("configuration validation failed").WithCause(err).Build()
	}
	for _, pattern := range c.Watch.Ignore {
		if _, err := path.Match(pattern, ""); err != nil {
			return ferrors.ValidationError("invalid watch.ignore pattern").
				WithCause(err).
				WithContext("pattern", pattern).
				Build()
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "bcp47_language_tag":
		return fmt.Sprintf("%s %q is not a BCP 47 language tag", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}
