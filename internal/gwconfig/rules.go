package gwconfig

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors are the
// persisted json names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := jsonName(f)
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

var mapIndexRe = regexp.MustCompile(`\[([^\]]*)\]`)

// checkRules applies the range and format rules declared in `validate` tags.
func checkRules(cfg *Config) ValidationErrors {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return ValidationErrors{{Reason: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{Path: rulePath(fe.Namespace()), Reason: ruleReason(fe)})
	}
	return out
}

// rulePath turns "Config.providers[openai].apiBase" into "providers.openai.apiBase".
func rulePath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return mapIndexRe.ReplaceAllString(ns, ".$1")
}

func ruleReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " rule"
	}
}
