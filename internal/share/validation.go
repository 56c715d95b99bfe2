package share

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pantrylink/pantrylink-go/internal/identity"
)

// sendInput is the validated form of a SendRequest call.
type sendInput struct {
	ToUsername string     `validate:"required,pantry_username"`
	Permission Permission `validate:"required,oneof=view edit"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("pantry_username", func(fl validator.FieldLevel) bool {
		return identity.ValidUsername(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validateSendInput runs client-side validation and folds validator output
// into an ErrInvalidInput-wrapped error with readable field messages.
func validateSendInput(in sendInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

// fieldError converts a single validator error into a human-readable message.
func fieldError(fe validator.FieldError) string {
	switch fe.Field() {
	case "ToUsername":
		if fe.Tag() == "required" {
			return "username is required"
		}
		return "username must be 3-20 letters, digits, or underscores"
	case "Permission":
		return "permission must be view or edit"
	default:
		return fmt.Sprintf("%s failed validation (%s)", strings.ToLower(fe.Field()), fe.Tag())
	}
}
