package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report the query/json name instead of the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// BindAndValidate binds the request into req, applies `default` tags, then
// runs `validate` tags. Failures come back as a 400 *AppError.
func BindAndValidate(c echo.Context, req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return InternalErrorf("apply defaults").WithError(err)
	}
	if err := c.Bind(req); err != nil {
		return validationError(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationError(err)
	}
	return nil
}

// Validate runs `validate` tags on an already populated struct.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *AppError {
	appErr := NewAppError("ERR_VALIDATION", "", "invalid request", http.StatusBadRequest).WithError(err)

	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		for _, fe := range ves {
			appErr.Details = append(appErr.Details, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		if len(appErr.Details) == 1 {
			appErr.Field = appErr.Details[0].Field
			appErr.Message = appErr.Details[0].Message
		}
		return appErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		appErr.Message = fmt.Sprint(he.Message)
		return appErr
	}
	appErr.Message = err.Error()
	return appErr
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt", "gte", "lt", "lte":
		ops := map[string]string{"gt": "greater than", "gte": "at least", "lt": "less than", "lte": "at most"}
		return fmt.Sprintf("%s must be %s %s", field, ops[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt":
		return map[string]interface{}{"value": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
