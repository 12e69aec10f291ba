package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/advocate-booking/internal/config"
	"github.com/iliyamo/advocate-booking/internal/handler"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/repository"
	"github.com/iliyamo/advocate-booking/internal/utils"
)

const secret = "router-test-secret"

type actors map[uint64]model.Actor

func (a actors) ResolveActor(_ context.Context, id uint64) (model.Actor, error) {
	act, ok := a[id]
	if !ok {
		return model.Actor{}, repository.ErrNotFound
	}
	return act, nil
}

type appointments struct{ handler.Appointments }

func (appointments) ListAppointments(context.Context, model.Actor, model.AppointmentFilter) ([]model.Appointment, error) {
	return []model.Appointment{}, nil
}

type payments struct{ handler.Payments }

func (payments) PaymentStats(context.Context, model.Actor) (model.PaymentStats, error) {
	return model.PaymentStats{TotalPayments: 3}, nil
}

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	Register(e, Handlers{
		Auth:         handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil),
		Appointments: handler.NewAppointmentHandler(appointments{}, time.UTC),
		Cases:        handler.NewCaseHandler(nil, 0),
		Payments:     handler.NewPaymentHandler(payments{}),
		Directory:    handler.NewDirectoryHandler(nil, nil),
		Chats:        handler.NewChatHandler(nil),
		Health:       handler.Health(nil),
	}, Middleware{
		JWTSecret: secret,
		Actors: actors{
			1: {UserID: 1, Role: model.RoleClient},
			2: {UserID: 2, Role: model.RoleAdmin},
		},
	})
	return e
}

func call(t *testing.T, e *echo.Echo, method, path string, uid uint64, role model.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if uid != 0 {
		tok, err := utils.NewAccessToken(secret, uid, role, time.Minute)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticatedRoutes(t *testing.T) {
	e := newServer()

	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/healthz", 0, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/v1/appointments", 0, "").Code)
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/appointments", 1, model.RoleClient).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/v1/appointments", 99, model.RoleClient).Code,
		"token for a deleted user")
	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/v1/chats/3/messages", 0, "").Code)
}

func TestAdminRoutesUseStoredRole(t *testing.T) {
	e := newServer()

	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/admin/payments/stats", 1, model.RoleClient).Code)
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/admin/payments/stats", 1, model.RoleAdmin).Code,
		"a forged admin claim is overridden by the stored role")
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/admin/payments/stats", 2, model.RoleAdmin).Code)
}

func TestClientOnlyRoutes(t *testing.T) {
	e := newServer()
	rec := call(t, e, http.MethodPost, "/v1/appointments", 2, model.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
