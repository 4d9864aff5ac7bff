package middleware_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"algohub/internal/common/http/middleware"
	pkgerrors "algohub/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testIssuer = "algohub"
)

func newAccessToken(t *testing.T, secret, issuer string, userID int64, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", middleware.Auth(testSecret, testIssuer), func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Header("X-Authed-User", fmt.Sprint(userID))
		c.Status(http.StatusOK)
	})
	return router
}

func perform(t *testing.T, router *gin.Engine, authHeader string) (*httptest.ResponseRecorder, int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body struct {
		Code int `json:"code"`
	}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body.Code
}

func TestAuthValidToken(t *testing.T) {
	router := newAuthRouter()
	token := newAccessToken(t, testSecret, testIssuer, 42, time.Hour)

	rec, _ := perform(t, router, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Authed-User"); got != "42" {
		t.Fatalf("authed user = %q, want 42", got)
	}
}

func TestAuthMissingToken(t *testing.T) {
	router := newAuthRouter()

	rec, code := perform(t, router, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code != int(pkgerrors.TokenInvalid) {
		t.Fatalf("error code = %d, want TokenInvalid", code)
	}
}

func TestAuthExpiredToken(t *testing.T) {
	router := newAuthRouter()
	token := newAccessToken(t, testSecret, testIssuer, 42, -time.Hour)

	rec, code := perform(t, router, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code != int(pkgerrors.TokenExpired) {
		t.Fatalf("error code = %d, want TokenExpired", code)
	}
}

func TestAuthWrongSecret(t *testing.T) {
	router := newAuthRouter()
	token := newAccessToken(t, "other-secret", testIssuer, 42, time.Hour)

	rec, code := perform(t, router, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code != int(pkgerrors.TokenInvalid) {
		t.Fatalf("error code = %d, want TokenInvalid", code)
	}
}

func TestAuthWrongIssuer(t *testing.T) {
	router := newAuthRouter()
	token := newAccessToken(t, testSecret, "someone-else", 42, time.Hour)

	rec, _ := perform(t, router, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	router := newAuthRouter()
	for _, header := range []string{"Basic abc", "Bearer", "token-without-scheme"} {
		rec, _ := perform(t, router, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d", header, rec.Code)
		}
	}
}

func TestTraceContextHeadersPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.TraceContext())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-Id", "trace-abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-Id"); got != "trace-abc" {
		t.Fatalf("trace id = %q, want incoming value echoed", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id must be generated when absent")
	}
}
