package validator

import (
	"errors"
	"fmt"
	"strings"

	"petsit/pkg/logger"
	"petsit/pkg/model"
	"petsit/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SessionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSessionValidator(log *logger.Logger) *SessionValidator {
	return &SessionValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}
}

func (v *SessionValidator) ValidateRedemption(req *model.CodeRedemption) error {
	req.Code = strings.TrimSpace(req.Code)
	return v.validateStruct(req)
}

func (v *SessionValidator) ValidateAssignment(req *model.SitterAssignment) error {
	req.SitterID = sanitizer.Identifier(req.SitterID)
	return v.validateStruct(req)
}

func (v *SessionValidator) ValidateCancel(req *model.CancelRequest) error {
	req.Reason = sanitizer.Text(req.Reason)
	return v.validateStruct(req)
}

func (v *SessionValidator) ValidatePayment(req *model.PaymentRecord) error {
	req.PaymentRef = sanitizer.Reference(req.PaymentRef)
	return v.validateStruct(req)
}

func (v *SessionValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s digits", err.Field(), err.Param())
		case "numeric":
			message = fmt.Sprintf("%s must contain digits only", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
