package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/security"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// AuthController issues bearer tokens for registered users.
type AuthController struct {
	users    repository.UserRepository
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthController(users repository.UserRepository, secret string, tokenTTL time.Duration) *AuthController {
	return &AuthController{users: users, secret: secret, tokenTTL: tokenTTL, now: time.Now}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
}

func (r *loginRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
}

// HandleRegister creates a user account.
func (a *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if _, err := a.users.GetByEmail(req.Email); err == nil {
		return respondError(c, apperror.Conflict("email already registered"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, err)
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(c, apperror.Validation(err.Error(), err))
	}
	if err := a.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondError(c, apperror.Conflict("email already registered"))
		}
		return respondError(c, err)
	}

	log.Infof("[Auth] registered user %d", user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleLogin exchanges credentials for a bearer token.
func (a *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	// notice: failures share one message so account existence is not revealed
	user, err := a.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperror.Unauthorized("invalid email or password"))
		}
		return respondError(c, err)
	}
	if !user.CheckPassword(req.Password) {
		return respondError(c, apperror.Unauthorized("invalid email or password"))
	}
	if !user.IsActive() {
		return respondError(c, apperror.Forbidden("account disabled"))
	}

	token, err := security.IssueAccessToken(user.ID, user.Email, user.Role, a.tokenTTL, a.secret)
	if err != nil {
		return respondError(c, err)
	}
	if err := a.users.TouchLastLogin(user.ID, a.now()); err != nil {
		log.Warnf("[Auth] update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(a.tokenTTL.Seconds()),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
