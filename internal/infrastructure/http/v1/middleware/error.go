package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"

	"taller/internal/core/apperror"
	"taller/internal/infrastructure/storage/postgres"
	"taller/pkg/logger"
)

// Gin keys shared by the idempotency middleware and the handlers.
const (
	KeyIdempotencyKey   = "idempotency_key"
	KeyIdempotencyStore = "idempotency_store"
)

// ErrorHandler renders the last error of the request as {code, message, details}.
// It is the only place that writes error bodies; handlers call c.Error and abort.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := toAppError(c.Errors.Last().Err)
		ctx := c.Request.Context()
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed",
				"code", appErr.Code,
				"path", c.FullPath(),
				"error", appErr.Err,
			)
		} else if appErr.Err != nil {
			logger.Debug(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			// Internal causes never reach the client.
			body["message"] = "Internal server error"
			body["details"] = map[string]any{"request_id": c.GetString("request_id")}
		}

		finishIdempotency(c, appErr.HTTPStatus, body)
		c.JSON(appErr.HTTPStatus, body)
	}
}

func toAppError(err error) *apperror.AppError {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return apperror.NewValidation("invalid request").
			WithDetail("field", verrs[0].Field()).
			WithDetail("fields", fields).
			WithCause(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperror.NewConflict("record already exists").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case "23503":
			return apperror.NewValidation("referenced record does not exist").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return apperror.NewDatabase(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTimeout(err)
	}

	return apperror.NewInternal(err)
}

// finishIdempotency records the error under the request's idempotency key.
// Client errors replay as-is; server errors free the key for a retry.
func finishIdempotency(c *gin.Context, status int, body any) {
	key, ok := c.Get(KeyIdempotencyKey)
	if !ok {
		return
	}
	v, _ := c.Get(KeyIdempotencyStore)
	store, ok := v.(*postgres.IdempotencyStore)
	if !ok || store == nil {
		return
	}
	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		if err := store.ReleaseKey(ctx, key.(string)); err != nil {
			logger.Warn(ctx, "release idempotency key", "error", err)
		}
		return
	}
	if err := store.FailKey(ctx, key.(string), status, "application/json", body); err != nil {
		logger.Warn(ctx, "store failed idempotent response", "error", err)
	}
}
