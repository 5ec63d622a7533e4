// Package handler contains the echo handlers for the public catalogue,
// authentication, provider self-service and the staff back-office.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/services-marketplace/internal/middleware"
)

// Field-level validation messages.
const (
	msgRequired     = "Ce champ est obligatoire."
	msgInvalidPrice = "Prix invalide."
	msgInvalidValue = "Valeur invalide."
)

// fieldErrors collects validation messages per input field.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func validationFailed(c echo.Context, fe fieldErrors) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

func serverError(c echo.Context, msg string, err error) error {
	log.Printf("handler: %s: %v", msg, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// currentUser returns the id JWTAuth stored in the context.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errors.New("no authenticated user")
	}
	return id, nil
}

// param is a scalar request field. It binds from form values through
// echo's BindUnmarshaler and from JSON strings, numbers or booleans, so
// HTML forms and JSON clients share one request struct. A *param field
// is nil when the client did not send it.
type param string

func (p *param) UnmarshalParam(v string) error {
	*p = param(v)
	return nil
}

func (p *param) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = param(s)
	case b[0] == '{' || b[0] == '[':
		return errors.New("expected a scalar value")
	default:
		*p = param(b)
	}
	return nil
}

// String returns the trimmed value.
func (p param) String() string { return strings.TrimSpace(string(p)) }

// flag reads a checkbox-style boolean; absent or unparsable means false.
func (p param) flag() bool {
	v := optionalFlag(string(p))
	return v != nil && *v
}

// optionalFlag reads a boolean filter; absent or unparsable means nil.
func optionalFlag(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes", "oui":
		v := true
		return &v
	case "0", "false", "off", "no", "non":
		v := false
		return &v
	}
	return nil
}

// queryID parses an optional numeric query parameter, 0 when absent or
// invalid.
func queryID(c echo.Context, name string) uint64 {
	id, _ := strconv.ParseUint(strings.TrimSpace(c.QueryParam(name)), 10, 64)
	return id
}
