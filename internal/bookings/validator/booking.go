package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"petsit/pkg/logger"
	"petsit/pkg/model"
	"petsit/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var timeOfDayRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

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

type BookingValidator struct {
	validate    *validator.Validate
	logger      *logger.Logger
	maxSpanDays int
}

func NewBookingValidator(log *logger.Logger, maxSpanDays int) *BookingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("time_of_day", validateTimeOfDay); err != nil {
		log.Fatal("Failed to register 'time_of_day' validator",
			"error", err,
		)
	}
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	return &BookingValidator{
		validate:    v,
		logger:      log,
		maxSpanDays: maxSpanDays,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	return timeOfDayRegex.MatchString(fl.Field().String())
}

// decimalValue lets numeric tags such as gt compare decimal fields.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

// ValidateCreate normalizes req in place and checks field and cross-field
// rules. Date ranges are checked here; whether the pattern yields any
// session is decided by the generator.
func (v *BookingValidator) ValidateCreate(req *model.BookingRequest) error {
	v.sanitize(req)

	if err := v.validateStruct(req); err != nil {
		return err
	}

	return v.checkSchedule(req.Recurring, req.Pattern, req.StartDate, req.EndDate)
}

func (v *BookingValidator) ValidateEstimate(req *model.EstimateRequest) error {
	req.ServiceID = sanitizer.Identifier(req.ServiceID)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	req.Pattern = sanitizer.Pattern(req.Pattern)

	if err := v.validateStruct(req); err != nil {
		return err
	}

	return v.checkSchedule(req.Recurring, req.Pattern, req.StartDate, req.EndDate)
}

func (v *BookingValidator) checkSchedule(recurring bool, pattern, startDate, endDate string) error {
	if !recurring {
		if pattern != "" {
			return single("Pattern", "pattern is only allowed for recurring bookings")
		}
		return nil
	}

	if endDate == "" {
		return single("EndDate", "end_date is required for recurring bookings")
	}

	start, _ := time.Parse(DateLayout, startDate)
	end, _ := time.Parse(DateLayout, endDate)
	if days := int(end.Sub(start).Hours() / 24); days > v.maxSpanDays {
		return single("EndDate", fmt.Sprintf("booking range is %d days, at most %d allowed", days, v.maxSpanDays))
	}

	return nil
}

func (v *BookingValidator) ValidatePayment(req *model.PaymentRecord) error {
	req.PaymentRef = sanitizer.Reference(req.PaymentRef)
	return v.validateStruct(req)
}

func (v *BookingValidator) sanitize(req *model.BookingRequest) {
	req.PetID = sanitizer.Identifier(req.PetID)
	req.ServiceID = sanitizer.Identifier(req.ServiceID)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	req.TimeOfDay = strings.TrimSpace(req.TimeOfDay)
	req.TimeZone = strings.TrimSpace(req.TimeZone)
	req.Pattern = sanitizer.Pattern(req.Pattern)
	req.PaymentMode = strings.ToLower(strings.TrimSpace(req.PaymentMode))
}

func (v *BookingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func single(field, message string) ValidationErrors {
	return ValidationErrors{
		ValidationError{
			Field:   field,
			Message: message,
		},
	}
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "time_of_day":
			message = fmt.Sprintf("%s must be a 24-hour time in HH:MM format", err.Field())
		case "timezone":
			message = fmt.Sprintf("%s must be an IANA time zone name", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
