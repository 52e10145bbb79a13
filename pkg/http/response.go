package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the envelope with statusCode as the HTTP status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// AppErrorResponse writes err. Errors that are not *AppError become a
// generic 500 so internals never leak to clients.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, appErr)
	}
	return DataResponse(c, http.StatusInternalServerError, NewAppError("ERR_INTERNAL", "", "something went wrong", http.StatusInternalServerError))
}

// ErrorHandler plugs AppErrorResponse into echo for errors returned by handlers.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = DataResponse(c, he.Code, NewAppError("ERR_HTTP", "", http.StatusText(he.Code), he.Code))
		return
	}
	_ = AppErrorResponse(c, err)
}
