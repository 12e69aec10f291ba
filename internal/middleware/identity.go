package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// ActorResolver turns an authenticated user id into an actor with its
// profile links.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uint64) (model.Actor, error)
}

// LoadActor must run after JWTAuth.  It resolves the token's user to an
// actor once per request.  A deactivated or deleted account is rejected
// even while its token is unexpired.
func LoadActor(r ActorResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := c.Get(ctxUserID).(uint64)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			actor, err := r.ResolveActor(c.Request().Context(), uid)
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account not found or inactive"})
			}
			if err != nil {
				c.Logger().Errorf("resolve actor %d: %v", uid, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			c.Set(ctxActor, actor)
			// the stored role wins over a stale token claim
			c.Set(ctxRole, actor.Role)
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by LoadActor.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ctxActor).(model.Actor)
	return a, ok
}

// SetActor stores a for downstream handlers.  Tests use it to skip the
// token round trip.
func SetActor(c echo.Context, a model.Actor) {
	c.Set(ctxUserID, a.UserID)
	c.Set(ctxRole, a.Role)
	c.Set(ctxActor, a)
}

// userKey identifies the caller for rate limiting, "anon" when the
// request is unauthenticated.
func userKey(c echo.Context) string {
	if uid, ok := c.Get(ctxUserID).(uint64); ok && uid != 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
