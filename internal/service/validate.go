package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	return v
}

// invalid turns validator errors into a models.ErrMalformedRequest listing
// the offending fields.
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", models.ErrMalformedRequest, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" "+fe.Tag())
	}
	return fmt.Errorf("%w: invalid %s", models.ErrMalformedRequest, strings.Join(fields, ", "))
}
