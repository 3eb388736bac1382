package utils

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "workitem-system/pkg/errors"
)

type HttpResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
	Total   *uint64     `json:"total_count,omitempty"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int, total ...uint64) error {
	response := &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	}
	if len(total) > 0 {
		response.Total = &total[0]
	}
	return ctx.JSON(code, response)
}

// ErrorResponse maps typed errors to status codes. Unknown errors surface as
// a plain 500 without leaking internals.
func ErrorResponse(ctx echo.Context, err error) error {
	code := apperrors.StatusOf(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal server error"
	}
	return ctx.JSON(code, &HttpResponse{
		Status:  false,
		Message: message,
	})
}
