package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/config"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/repository"
	"github.com/iliyamo/advocate-booking/internal/utils"
)

// Users is the account store the auth endpoints need.
type Users interface {
	Register(ctx context.Context, reg repository.Registration, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Tokens stores refresh token hashes.
type Tokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	RotateRefresh(ctx context.Context, oldHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  Users
	Tokens Tokens
}

func NewAuthHandler(cfg config.Config, u Users, t Tokens) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	FullName string  `json:"full_name" validate:"required,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
	Role     string  `json:"role" validate:"omitempty,oneof=CLIENT ADVOCATE client advocate"`

	City                 string `json:"city" validate:"max=80"`
	Specialization       string `json:"specialization" validate:"max=120"`
	ExperienceYears      int    `json:"experience_years" validate:"min=0,max=80"`
	BarCouncilID         string `json:"bar_council_id" validate:"required_if=Role ADVOCATE,required_if=Role advocate,max=60"`
	ConsultationFeeCents int64  `json:"consultation_fee_cents" validate:"min=0"`
}

type assistantReq struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	FullName string  `json:"full_name" validate:"required,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *registerReq) normalize() { r.Email = utils.NormalizeEmail(r.Email) }
func (r *assistantReq) normalize() { r.Email = utils.NormalizeEmail(r.Email) }
func (r *loginReq) normalize() { r.Email = utils.NormalizeEmail(r.Email) }

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID       uint64     `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue mints an access and refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTL())
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL())
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a CLIENT (default) or ADVOCATE account with its
// profile and returns tokens immediately.  Advocates start unverified.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	role := model.RoleClient
	if r, ok := model.ParseRole(req.Role); ok {
		role = r
	}
	reg := repository.Registration{
		Email:    utils.NormalizeEmail(req.Email),
		Password: req.Password,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    req.Phone,
		Role:     role,
		City:     req.City,
	}
	if role == model.RoleAdvocate {
		reg.Specialization = req.Specialization
		reg.ExperienceYears = req.ExperienceYears
		reg.BarCouncilID = strings.TrimSpace(req.BarCouncilID)
		reg.ConsultationFeeCents = req.ConsultationFeeCents
	}
	return h.create(c, reg)
}

// CreateAssistant lets an advocate open an ASSISTANT account linked to
// their practice.
func (h *AuthHandler) CreateAssistant(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	if actor.Role != model.RoleAdvocate || actor.AdvocateID == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only advocates can add assistants"})
	}
	var req assistantReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	return h.create(c, repository.Registration{
		Email:       utils.NormalizeEmail(req.Email),
		Password:    req.Password,
		FullName:    strings.TrimSpace(req.FullName),
		Phone:       req.Phone,
		Role:        model.RoleAssistant,
		AssistantOf: *actor.AdvocateID,
	})
}

func (h *AuthHandler) create(c echo.Context, reg repository.Registration) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Register(ctx, reg, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "profile already exists"})
	case err != nil:
		c.Logger().Errorf("register %s: %v", reg.Email, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	resp, err := h.issue(ctx, model.User{ID: uid, Email: reg.Email, FullName: reg.FullName, Role: reg.Role})
	if err != nil {
		c.Logger().Errorf("issue tokens for %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		c.Logger().Errorf("login lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is disabled"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		c.Logger().Errorf("issue tokens for %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// issued.  Reusing a rotated token fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.RotateRefresh(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		c.Logger().Errorf("rotate refresh: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		c.Logger().Errorf("issue tokens for %d: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every session of the
// caller when the body is empty and the route is authenticated.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, actor.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account and profile links.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":         userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role},
		"client_id":    actor.ClientID,
		"advocate_id":  actor.AdvocateID,
		"assistant_of": actor.AssistantOf,
	})
}
