package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-account-service/internal/adapter/gin/middleware"
	"user-account-service/internal/usecase/user"
	apperrors "user-account-service/pkg/errors"
	"user-account-service/pkg/logger"
)

// CookieConfig controls the session cookie written on register and authenticate.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// UserHandler handles HTTP requests for account and profile operations
type UserHandler struct {
	uc     user.Service
	cookie CookieConfig
	log    *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Service, cookie CookieConfig, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:     uc,
		cookie: cookie,
		log:    log,
	}
}

// RegisterRequest represents the HTTP request body for registering a user
type RegisterRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	IsActive    *bool  `json:"is_active,omitempty"`
	Role        string `json:"user_role,omitempty"`
}

// AuthenticateRequest represents the HTTP request body for logging in
type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the HTTP request body for a profile update.
// Omitted fields are left untouched.
type UpdateProfileRequest struct {
	DisplayName  *string `json:"display_name,omitempty"`
	Email        *string `json:"email,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
}

// AccountResponse represents the HTTP response for register and authenticate
type AccountResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	Role        string `json:"user_role"`
	Token       string `json:"token,omitempty"`
}

// ProfileResponse represents the HTTP response for user data
type ProfileResponse struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	DepartmentID string    `json:"department_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	Role         string    `json:"user_role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	resp, err := h.uc.Register(c.Request.Context(), user.RegisterRequest{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		IsActive:    req.IsActive,
		Role:        req.Role,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	if resp.Token != "" {
		h.setSessionCookie(c, resp.Token)
	}
	c.JSON(http.StatusCreated, toAccountResponse(resp, false))
}

// Authenticate handles POST /api/v1/users/auth
func (h *UserHandler) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	resp, err := h.uc.Authenticate(c.Request.Context(), user.AuthenticateRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.setSessionCookie(c, resp.Token)
	c.JSON(http.StatusOK, toAccountResponse(resp, true))
}

// GetProfile handles GET /api/v1/users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetOwnProfile(c.Request.Context(), callerID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(resp))
}

// UpdateProfile handles PUT /api/v1/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	resp, err := h.uc.UpdateOwnProfile(c.Request.Context(), callerID, user.UpdateProfileRequest{
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(resp))
}

// GetUser handles GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	resp, err := h.uc.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(resp))
}

func (h *UserHandler) callerID(c *gin.Context) (string, bool) {
	id, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Missing session token",
		})
	}
	return id, ok
}

func (h *UserHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieName, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *UserHandler) badBody(c *gin.Context, err error) {
	logger.WithContext(c.Request.Context(), h.log).Warn("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Request body must be valid JSON",
	})
}

// handleError converts usecase errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var (
		validationErr *apperrors.ValidationError
		conflictErr   *apperrors.ConflictError
		authErr       *apperrors.AuthError
		notFoundErr   *apperrors.NotFoundError
	)

	code := "internal_error"
	switch {
	case errors.As(err, &validationErr):
		code = "validation_error"
	case errors.As(err, &conflictErr):
		code = "conflict"
	case errors.As(err, &authErr):
		code = "unauthorized"
	case errors.As(err, &notFoundErr):
		code = "not_found"
	}

	status := http.StatusInternalServerError
	var statuser apperrors.HTTPStatuser
	if code != "internal_error" && errors.As(err, &statuser) {
		status = statuser.HTTPStatus()
	}

	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context(), h.log).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}

func toAccountResponse(r *user.AccountResponse, withToken bool) AccountResponse {
	out := AccountResponse{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		IsActive:    r.IsActive,
		Role:        r.Role,
	}
	if withToken {
		out.Token = r.Token
	}
	return out
}

func toProfileResponse(p *user.Profile) ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		Email:        p.Email,
		DepartmentID: p.DepartmentID,
		IsActive:     p.IsActive,
		Role:         p.Role,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
