package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/savingsgroup/internal/models"
)

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrMeetingNotActive):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSavingTypeConstraint),
		errors.Is(err, models.ErrInvalidInput):
		code = connect.CodeInvalidArgument
	case errors.Is(err, models.ErrDuplicateReference):
		code = connect.CodeAlreadyExists
	case errors.Is(err, models.ErrAlreadyResolved):
		code = connect.CodeAborted
	case errors.Is(err, models.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, models.ErrForbidden):
		code = connect.CodePermissionDenied
	}
	return connect.NewError(code, err)
}

// fail logs a failed call and converts its error.
func fail(ctx context.Context, op string, err error) error {
	connectErr := toConnectError(err)
	if connectErr.Code() == connect.CodeInternal {
		slog.ErrorContext(ctx, op+" failed", "error", err)
	} else {
		slog.DebugContext(ctx, op+" rejected", "code", connectErr.Code(), "error", err)
	}
	return connectErr
}
