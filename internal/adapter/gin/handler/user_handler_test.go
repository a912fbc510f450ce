package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-account-service/internal/adapter/gin/middleware"
	usecase "user-account-service/internal/usecase/user"
	pkgerrors "user-account-service/pkg/errors"
)

const callerID = "65f1c0ffee0000000000abcd"

// MockService is a mock implementation of user.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, in usecase.RegisterRequest) (*usecase.AccountResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AccountResponse), args.Error(1)
}

func (m *MockService) Authenticate(ctx context.Context, in usecase.AuthenticateRequest) (*usecase.AccountResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AccountResponse), args.Error(1)
}

func (m *MockService) GetOwnProfile(ctx context.Context, id string) (*usecase.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Profile), args.Error(1)
}

func (m *MockService) UpdateOwnProfile(ctx context.Context, id string, in usecase.UpdateProfileRequest) (*usecase.Profile, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Profile), args.Error(1)
}

func (m *MockService) GetUserByID(ctx context.Context, id string) (*usecase.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Profile), args.Error(1)
}

// fakeAuth stands in for the auth middleware.
func fakeAuth(c *gin.Context) {
	middleware.SetUserID(c, callerID)
	c.Next()
}

func setupTest(t *testing.T) (*gin.Engine, *MockService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockService)
	h := NewUserHandler(svc, CookieConfig{Secure: true, MaxAge: time.Hour}, zaptest.NewLogger(t))

	r := gin.New()
	r.POST("/users/register", h.Register)
	r.POST("/users/auth", h.Authenticate)
	r.GET("/users/profile", fakeAuth, h.GetProfile)
	r.PUT("/users/profile", fakeAuth, h.UpdateProfile)
	r.GET("/users/noauth", h.GetProfile)
	r.GET("/users/:id", h.GetUser)
	return r, svc
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	return nil
}

func account() *usecase.AccountResponse {
	return &usecase.AccountResponse{
		ID:             callerID,
		DisplayName:    "Ada",
		Email:          "ada@example.com",
		IsActive:       true,
		Role:           "user",
		Token:          "signed.jwt.value",
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("Register", mock.Anything, usecase.RegisterRequest{
			DisplayName: "Ada",
			Email:       "ada@example.com",
			Password:    "pw1",
		}).Return(account(), nil)

		w := doJSON(r, http.MethodPost, "/users/register", `{"display_name":"Ada","email":"ada@example.com","password":"pw1"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, callerID, body["id"])
		assert.Equal(t, "user", body["user_role"])
		assert.NotContains(t, body, "token")
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "password_hash")

		cookie := sessionCookie(t, w)
		require.NotNil(t, cookie)
		assert.Equal(t, "signed.jwt.value", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, 3600, cookie.MaxAge)
	})

	t.Run("InactiveGetsNoCookie", func(t *testing.T) {
		r, svc := setupTest(t)
		inactive := account()
		inactive.IsActive = false
		inactive.Token = ""
		inactive.TokenExpiresAt = time.Time{}
		svc.On("Register", mock.Anything, mock.Anything).Return(inactive, nil)

		w := doJSON(r, http.MethodPost, "/users/register", `{"display_name":"Ada","email":"ada@example.com","password":"pw1","is_active":false}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Nil(t, sessionCookie(t, w))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["is_active"])
	})

	t.Run("Conflict", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, pkgerrors.ErrUserExists)

		w := doJSON(r, http.MethodPost, "/users/register", `{"display_name":"Ada","email":"a@x.com","password":"pw"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"conflict","message":"user exists"}`, w.Body.String())
		assert.Nil(t, sessionCookie(t, w))
	})

	t.Run("PasswordRequired", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, pkgerrors.ErrPasswordRequired)

		w := doJSON(r, http.MethodPost, "/users/register", `{"display_name":"Ada","email":"a@x.com"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"validation_error","message":"password required"}`, w.Body.String())
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		r, svc := setupTest(t)

		w := doJSON(r, http.MethodPost, "/users/register", `{"display_name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("InternalErrorHidesDetail", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("Register", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewInternalError("failed to create user", errors.New("dial tcp 10.0.0.5:27017")))

		w := doJSON(r, http.MethodPost, "/users/register", `{"display_name":"Ada","email":"a@x.com","password":"pw"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal_error","message":"An internal error occurred"}`, w.Body.String())
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("Authenticate", mock.Anything, usecase.AuthenticateRequest{Email: "ada@example.com", Password: "pw1"}).
			Return(account(), nil)

		w := doJSON(r, http.MethodPost, "/users/auth", `{"email":"ada@example.com","password":"pw1"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var body AccountResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "signed.jwt.value", body.Token)
		assert.Equal(t, "Ada", body.DisplayName)
		require.NotNil(t, sessionCookie(t, w))
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("Authenticate", mock.Anything, mock.Anything).Return(nil, pkgerrors.ErrInvalidCredentials)

		w := doJSON(r, http.MethodPost, "/users/auth", `{"email":"ada@example.com","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized","message":"invalid email or password"}`, w.Body.String())
		assert.Nil(t, sessionCookie(t, w))
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("GetOwnProfile", mock.Anything, callerID).Return(&usecase.Profile{
			ID:          callerID,
			DisplayName: "Ada",
			Email:       "ada@example.com",
			IsActive:    true,
			Role:        "user",
		}, nil)

		w := doJSON(r, http.MethodGet, "/users/profile", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Ada", body["display_name"])
		assert.NotContains(t, body, "department_id")
		assert.NotContains(t, body, "password_hash")
	})

	t.Run("NotFound", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("GetOwnProfile", mock.Anything, callerID).Return(nil, pkgerrors.ErrUserNotFound)

		w := doJSON(r, http.MethodGet, "/users/profile", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"not_found"`)
	})

	t.Run("NoCaller", func(t *testing.T) {
		r, _ := setupTest(t)

		w := doJSON(r, http.MethodGet, "/users/noauth", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		name := "Ada L"
		svc.On("UpdateOwnProfile", mock.Anything, callerID, usecase.UpdateProfileRequest{DisplayName: &name}).
			Return(&usecase.Profile{ID: callerID, DisplayName: name, Email: "ada@example.com", Role: "user"}, nil)

		// Fields outside the allow-list are ignored.
		w := doJSON(r, http.MethodPut, "/users/profile", `{"display_name":"Ada L","user_role":"admin","is_active":false}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"display_name":"Ada L"`)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidDepartment", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("UpdateOwnProfile", mock.Anything, callerID, mock.Anything).Return(nil, pkgerrors.ErrInvalidDepartment)

		w := doJSON(r, http.MethodPut, "/users/profile", `{"department_id":"sales"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"validation_error","message":"invalid department id"}`, w.Body.String())
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		r, svc := setupTest(t)

		req := httptest.NewRequest(http.MethodPut, "/users/profile", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateOwnProfile", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, svc := setupTest(t)
		other := "65f1c0ffee0000000000dcba"
		svc.On("GetUserByID", mock.Anything, other).Return(&usecase.Profile{
			ID:           other,
			DisplayName:  "Grace",
			Email:        "grace@example.com",
			DepartmentID: "65f1c0ffee00000000001111",
			Role:         "admin",
		}, nil)

		w := doJSON(r, http.MethodGet, "/users/"+other, "")

		assert.Equal(t, http.StatusOK, w.Code)
		var body ProfileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Grace", body.DisplayName)
		assert.Equal(t, "65f1c0ffee00000000001111", body.DepartmentID)
	})

	t.Run("InvalidID", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("GetUserByID", mock.Anything, "xyz").Return(nil, pkgerrors.ErrInvalidUserID)

		w := doJSON(r, http.MethodGet, "/users/xyz", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"validation_error","message":"invalid user id"}`, w.Body.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		r, svc := setupTest(t)
		svc.On("GetUserByID", mock.Anything, mock.Anything).Return(nil, pkgerrors.ErrUserNotFound)

		w := doJSON(r, http.MethodGet, "/users/65f1c0ffee0000000000ffff", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
