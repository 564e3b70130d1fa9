package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON envelope for all API failures.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPStatusForCode maps machine error codes to HTTP statuses.
func HTTPStatusForCode(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateName, CodeDuplicateSKU, CodeStateConflict:
		return http.StatusConflict
	case CodeValidation, CodeArchived, CodeNotLeaf:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SendError writes err as a JSON error envelope with the mapped status.
func SendError(c echo.Context, err error) error {
	code := CodeOf(err)
	return c.JSON(HTTPStatusForCode(code), ErrorResponse{Code: code, Message: err.Error()})
}
