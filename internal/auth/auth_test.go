package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

func init() { gin.SetMode(gin.TestMode) }

func setupUsers(t *testing.T) (repository.UserRepository, *model.User) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	users := repository.NewUserRepository(db)
	u := &model.User{Username: "leo", Password: "x"}
	require.NoError(t, users.Create(context.Background(), u))
	return users, u
}

func TestViewer(t *testing.T) {
	anon := Anonymous()
	assert.False(t, anon.IsAuthenticated())
	assert.Equal(t, "", anon.ID())
	assert.False(t, anon.Is(""))

	v := As(&model.User{ID: "u1"})
	assert.True(t, v.IsAuthenticated())
	assert.True(t, v.Is("u1"))
	assert.False(t, v.Is("u2"))
}

func TestLoginRedirect_KeepsSlashes(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=/create/", LoginRedirect("/auth/login/", "/create/"))
	assert.Equal(t, "/auth/login/?next=/posts/a+b/edit/", LoginRedirect("/auth/login/", "/posts/a b/edit/"))
	assert.Equal(t, "/login?x=1&next=/follow/", LoginRedirect("/login?x=1", "/follow/"))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/create/", SafeNext("/create/", "/"))
	assert.Equal(t, "/", SafeNext("", "/"))
	assert.Equal(t, "/", SafeNext("https://evil.example", "/"))
	assert.Equal(t, "/", SafeNext("//evil.example", "/"))
}

func TestSessionLoginFlow(t *testing.T) {
	users, leo := setupUsers(t)
	r := gin.New()
	r.Use(Sessions(config.SessionConfig{Name: "sid", Secret: "test-secret", MaxAge: 3600}), LoadViewer(users))
	r.GET("/login", func(c *gin.Context) {
		require.NoError(t, Login(c, leo))
		c.Status(http.StatusNoContent)
	})
	r.GET("/logout", func(c *gin.Context) {
		require.NoError(t, Logout(c))
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", RequireLogin("/auth/login/"), func(c *gin.Context) {
		c.String(http.StatusOK, ViewerFrom(c).User.Username)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=/private", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "leo", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestJWT_IssueAndParse(t *testing.T) {
	j := NewJWT(config.JWTConfig{Secret: "s", TTL: time.Hour, Issuer: "gin-blog"})
	u := &model.User{ID: "u1", Username: "leo"}

	token, exp, err := j.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := j.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "leo", claims.Username)

	other := NewJWT(config.JWTConfig{Secret: "other", TTL: time.Hour, Issuer: "gin-blog"})
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWT(config.JWTConfig{Secret: "s", TTL: time.Hour, Issuer: "gin-blog"})
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerViewer(t *testing.T) {
	users, leo := setupUsers(t)
	j := NewJWT(config.JWTConfig{Secret: "s", TTL: time.Hour, Issuer: "gin-blog"})
	r := gin.New()
	r.GET("/me", BearerViewer(users, j), func(c *gin.Context) {
		c.String(http.StatusOK, ViewerFrom(c).ID())
	})

	token, _, err := j.Issue(leo)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, leo.ID, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
