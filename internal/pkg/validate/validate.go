package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lostfound-api/internal/domain"
)

// v is the package-level singleton validator. Custom tags are registered in
// init() before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("cnphone", func(fl validator.FieldLevel) bool {
		return domain.PhonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("nosensitive", func(fl validator.FieldLevel) bool {
		return !domain.ContainsAny(fl.Field().String(), domain.SensitiveFragments)
	})
	_ = v.RegisterValidation("noscript", func(fl validator.FieldLevel) bool {
		return !domain.ContainsAny(fl.Field().String(), domain.ScriptFragments)
	})
}

// Struct validates the given struct using its validate tags.
// The returned error wraps domain.ErrValidation and lists every failed field.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrValidation)
	}
	return nil
}
