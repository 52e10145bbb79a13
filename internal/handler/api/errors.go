package api

import (
	"errors"

	"FinEvent/internal/domain/models"
	xhttp "FinEvent/pkg/http"
)

// appError maps domain errors onto HTTP errors. Anything unrecognised is an
// internal error.
func appError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var colErr *models.MissingColumnError
	switch {
	case errors.As(err, &colErr):
		e := xhttp.UnprocessableErrorf("missing required column %q", colErr.Column).WithError(err)
		e.Code = "ERR_MISSING_COLUMN"
		e.Field = colErr.Column
		if colErr.Input != "" {
			e.WithParam("input", colErr.Input)
		}
		return e
	case errors.Is(err, models.ErrInvalidVersion):
		e := xhttp.BadRequestErrorf("%s", err.Error()).WithError(err)
		e.Code = "ERR_INVALID_VERSION"
		e.Field = "version"
		return e
	case errors.Is(err, models.ErrInvalidArgument):
		return xhttp.BadRequestErrorf("%s", err.Error()).WithError(err)
	}
	return xhttp.InternalErrorf("request failed").WithError(err)
}
