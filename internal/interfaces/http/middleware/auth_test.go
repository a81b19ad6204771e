package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCodec(t *testing.T) *token.Codec {
	t.Helper()
	c, err := token.NewCodec("middleware-test-secret", time.Hour)
	require.NoError(t, err)
	return c
}

func authRouter(t *testing.T, codec *token.Codec, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	r := gin.New()
	chain := append([]gin.HandlerFunc{RequireAuth(codec)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		claims := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":     claims.UserID,
			"ctx_user_id": c.Request.Context().Value(common.ContextKeyUserID),
		})
	})
	r.GET("/protected", chain...)
	return r
}

func get(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_ValidToken(t *testing.T) {
	codec := newCodec(t)
	r := authRouter(t, codec)

	raw, err := codec.Issue("user-1", "prov-1", token.RoleProvider)
	require.NoError(t, err)

	rec := get(r, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-1"`)
	assert.Contains(t, rec.Body.String(), `"ctx_user_id":"user-1"`)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := authRouter(t, newCodec(t))

	rec := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="claims-engine"`, rec.Header().Get("WWW-Authenticate"))
}

func TestRequireAuth_WrongScheme(t *testing.T) {
	r := authRouter(t, newCodec(t))

	rec := get(r, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ForgedToken(t *testing.T) {
	codec := newCodec(t)
	other, err := token.NewCodec("другой-secret", time.Hour)
	require.NoError(t, err)
	raw, err := other.Issue("user-1", "", token.RoleProvider)
	require.NoError(t, err)

	rec := get(authRouter(t, codec), "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_Allowed(t *testing.T) {
	codec := newCodec(t)
	r := authRouter(t, codec, RequireRole(token.RoleAuditor))

	raw, err := codec.Issue("aud-1", "", token.RoleAuditor)
	require.NoError(t, err)

	rec := get(r, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Denied(t *testing.T) {
	codec := newCodec(t)
	r := authRouter(t, codec, RequireRole(token.RoleAuditor))

	raw, err := codec.Issue("user-1", "prov-1", token.RoleProvider)
	require.NoError(t, err)

	rec := get(r, "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_AdminBypass(t *testing.T) {
	codec := newCodec(t)
	r := authRouter(t, codec, RequireRole(token.RoleAuditor))

	raw, err := codec.Issue("admin-1", "", token.RoleAdmin)
	require.NoError(t, err)

	rec := get(r, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireJobSecret(t *testing.T) {
	r := gin.New()
	r.POST("/jobs/run", RequireJobSecret("s3cret"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer s3cret", http.StatusOK},
		{"wrong secret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token s3cret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs/run", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", extractBearer("Bearer abc"))
	assert.Equal(t, "abc", extractBearer("bearer abc"))
	assert.Equal(t, "", extractBearer(""))
	assert.Equal(t, "", extractBearer("Bearer"))
	assert.Equal(t, "", extractBearer("Basic abc"))
}
