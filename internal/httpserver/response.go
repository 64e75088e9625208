package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/service"
	"github.com/Skotchmaster/shop_backend/internal/util"
	"github.com/Skotchmaster/shop_backend/pkg/logging"
	middleware "github.com/Skotchmaster/shop_backend/pkg/middleware/auth"
)

type envelope struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data,omitempty"`
	Count      *int             `json:"count,omitempty"`
	Pagination *util.Pagination `json:"pagination,omitempty"`
	Error      any              `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func respondList[T any](c echo.Context, items []T, pg *util.Pagination) error {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return c.JSON(http.StatusOK, envelope{Success: true, Data: items, Count: &n, Pagination: pg})
}

// statusOf maps a service error onto its HTTP status and client message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, clientMessage(err, service.ErrValidation)
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, clientMessage(err, service.ErrUnauthorized)
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, clientMessage(err, service.ErrForbidden)
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, clientMessage(err, service.ErrNotFound)
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, clientMessage(err, service.ErrConflict)
	case errors.Is(err, service.ErrPaymentFailed):
		return http.StatusBadGateway, "payment processing failed"
	}
	return http.StatusInternalServerError, "server error"
}

// clientMessage drops the sentinel prefix added by fmt.Errorf("%w: ...").
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}

// fail logs err under event and converts it to an *echo.HTTPError.
func fail(l *slog.Logger, event string, err error) error {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

// ErrorHandler renders every error as {success:false, error}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	var body any = "server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string, []string:
			body = m
		case error:
			body = m.Error()
		default:
			body = http.StatusText(status)
		}
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
			body = "server error"
		}
	} else {
		var msg string
		status, msg = statusOf(err)
		body = msg
		if status == http.StatusInternalServerError {
			logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, envelope{Success: false, Error: body})
}

// Validator adapts go-playground/validator to echo and reports field names
// as they appear in JSON.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fieldMessage(fe))
	}
	return echo.NewHTTPError(http.StatusBadRequest, msgs)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	}
	return field + " is invalid"
}

// bind decodes and validates the request into dst.
func bind(c echo.Context, l *slog.Logger, event string, dst any) error {
	if err := c.Bind(dst); err != nil {
		l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		l.Warn(event, "status", 400, "reason", "validation failed", "error", err)
		return err
	}
	return nil
}

func pathID(c echo.Context, l *slog.Logger, event, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		l.Warn(event, "status", 400, "reason", name+" is not a uuid", "error", err)
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// actor reads the caller set by the auth middleware.
func actor(c echo.Context) (service.Actor, error) {
	id, err := uuid.Parse(middleware.UserID(c))
	if err != nil {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "not authorized to access this route")
	}
	return service.Actor{ID: id, Role: models.Role(middleware.Role(c))}, nil
}
