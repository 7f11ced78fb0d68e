package envstruct

import (
	"fmt"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/myrjola/runplan/internal/errors"
)

var (
	ErrEnvNotSet    = errors.NewSentinel("environment variable not set")
	ErrInvalidValue = errors.NewSentinel("invalid value")
)

// Populate populates the fields of the pointer to struct v with values from the environment.
//
// lookupEnv has the same signature as [os.LookupEnv]. Fields are tagged with `env:"ENV_VAR"` and optionally
// `envDefault:"value"`. A field without a value and without a default yields ErrEnvNotSet. Supported field kinds
// are string, int and bool; ints and bools are parsed with strconv.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptrRef := reflect.ValueOf(v)
	if ptrRef.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: not pointer: %v", ErrInvalidValue, v)
	}
	ref := ptrRef.Elem()
	if ref.Kind() != reflect.Struct {
		return fmt.Errorf("%w: not struct: %v", ErrInvalidValue, v)
	}

	refType := ref.Type()
	var errorList []error

	for i := range refType.NumField() {
		field := refType.Field(i)
		envVarName, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		value := ref.Field(i)
		if !value.CanSet() {
			errorList = append(errorList, fmt.Errorf("%w: cannot set field %s", ErrInvalidValue, field.Name))
			continue
		}

		raw, err := envLookupWithFallback(envVarName, field.Tag, lookupEnv)
		if err != nil {
			errorList = append(errorList, err)
			continue
		}
		if err = setValue(value, raw); err != nil {
			errorList = append(errorList, errors.Wrap(err, "set field",
				slog.String("field", field.Name), slog.String("env", envVarName)))
		}
	}

	return errors.Join(errorList...)
}

func setValue(value reflect.Value, raw string) error {
	switch value.Kind() { //nolint:exhaustive // other kinds are rejected below.
	case reflect.String:
		value.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: parse int %q: %w", ErrInvalidValue, raw, err)
		}
		value.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: parse bool %q: %w", ErrInvalidValue, raw, err)
		}
		value.SetBool(b)
	default:
		return fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, value.Kind())
	}
	return nil
}

func envLookupWithFallback(envVarName string, tag reflect.StructTag, lookupEnv func(string) (string, bool)) (string, error) {
	if envVarValue, ok := lookupEnv(envVarName); ok {
		return envVarValue, nil
	}
	if fallback, ok := tag.Lookup("envDefault"); ok {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: %s", ErrEnvNotSet, envVarName)
}
