package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
)

// success is the standard envelope for a successful JSON response.
type success struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// errs is the standard envelope for an error JSON response.
type errs struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Info    map[string]string `json:"info,omitempty"`
}

func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// HandleSuccess writes a standardized success response.
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}
	return c.JSON(http.StatusOK, success{
		Code:    string(apperrors.ErrorCode_OK),
		Message: "success",
		Data:    data,
	})
}

// HandleError unwraps an AppError (if present) and writes its HTTP code
// and structured body; anything else is reported as an internal error.
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)

	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		if logger != nil {
			logger.Error("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.String("app_code", string(appErr.Code)),
				zap.Error(err),
			)
		}
		return c.JSON(appErr.HTTPCode, errs{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Info:    appErr.Details,
		})
	}

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.JSON(http.StatusInternalServerError, errs{
		Code:    string(apperrors.ErrorCode_INTERNAL),
		Message: "internal server error",
	})
}

// deviceID extracts the opaque per-client identifier used for
// single-flight and telemetry. Anonymous requests fall back to the
// remote address so they still get a (weaker) single-flight key.
func deviceID(c echo.Context) string {
	if id := c.Request().Header.Get("X-Device-ID"); id != "" {
		return id
	}
	return c.RealIP()
}
