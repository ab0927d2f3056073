package helpers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// JSONSuccess writes a concise success response: 204 when there is nothing
// to return, the payload directly when no message is set, otherwise a
// {"message": ..., "data": ...} wrapper.
func JSONSuccess(c echo.Context, code int, data any, message string) error {
	switch {
	case data == nil && message == "":
		return c.NoContent(http.StatusNoContent)
	case message == "":
		return c.JSON(code, data)
	case data == nil:
		return c.JSON(code, map[string]string{"message": message})
	default:
		return c.JSON(code, map[string]any{"message": message, "data": data})
	}
}

// JSONError writes {"error":"<text>"} with the provided HTTP code.
func JSONError(c echo.Context, code int, msg string) error {
	if msg == "" {
		msg = http.StatusText(code)
	}
	return c.JSON(code, map[string]string{"error": msg})
}

func BindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return JSONError(c, http.StatusBadRequest, "invalid json")
	}
	if err := validate.Struct(req); err != nil {
		return JSONError(c, http.StatusBadRequest, "missing or invalid fields")
	}
	return nil
}
