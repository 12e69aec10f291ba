package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/middleware"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/service"
)

// Validator adapts validator/v10 to echo.Validator.  Field names in
// errors are the JSON names.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }

// statusOf maps a service error kind to an HTTP status.
func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": message}.  Unclassified errors are
// logged and reported as a bare internal error.
func respondError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	if kind == service.KindInternal || kind == service.KindExternal {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(statusOf(kind), echo.Map{"error": service.Message(err)})
}

// normalizer is implemented by request bodies that clean their input
// before validation, such as trimming an email address.
type normalizer interface {
	normalize()
}

// bind decodes and validates the request body into dst.  A non-nil return
// means the 400 response has already been written.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest(c, "invalid request body")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return badRequest(c, "invalid input")
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
		return errResponded
	}
	return nil
}

var errResponded = errors.New("response written")

func badRequest(c echo.Context, msg string) error {
	_ = c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	return errResponded
}

// done turns the sentinel from bind and friends back into a nil handler
// result.
func done(err error) error {
	if errors.Is(err, errResponded) {
		return nil
	}
	return err
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest(c, "invalid "+name)
	}
	return id, nil
}

func actorFromContext(c echo.Context) (model.Actor, bool) { return middleware.ActorFrom(c) }

// actorOf returns the request's actor, resolved by middleware.LoadActor.
func actorOf(c echo.Context) (model.Actor, error) {
	a, ok := actorFromContext(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return model.Actor{}, errResponded
	}
	return a, nil
}
