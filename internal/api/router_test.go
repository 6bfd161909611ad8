package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/internal/storage"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

const testPassword = "s3cret-pass"

type testApp struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	deps   Deps
	pages  *cache.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	mediaDir := t.TempDir()
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: gin.TestMode, LoginURL: "/auth/login/"},
		Session: config.SessionConfig{Name: "sessionid", Secret: "test-session-secret", MaxAge: 3600},
		JWT:     config.JWTConfig{Secret: "test-jwt-secret", TTL: time.Hour, Issuer: "gin-blog"},
		Cache:   config.CacheConfig{Backend: "memory", IndexTTL: 20 * time.Second},
		Storage: config.StorageConfig{Backend: "disk", Dir: mediaDir, BaseURL: "/media/", MaxImageWidth: 960},
		Tracing: config.TracingConfig{ServiceName: "gin-blog-test"},
	}
	pages := cache.NewMemoryStore()
	deps := NewDeps(cfg, db, pages, storage.NewDiskStorage(mediaDir, cfg.Storage.BaseURL))
	deps.Accounts = service.NewUserService(deps.Users, bcrypt.MinCost)

	r, err := SetupRouter(deps)
	require.NoError(t, err)
	return &testApp{t: t, router: r, db: db, deps: deps, pages: pages}
}

// client 保存会话 cookie，模拟浏览器
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) anonymous() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postMultipart(path string, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(c.app.t, mw.WriteField(k, v))
	}
	require.NoError(c.app.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (a *testApp) signUp(username string) *model.User {
	a.t.Helper()
	u, err := a.deps.Accounts.SignUp(context.Background(), service.SignUpInput{
		Username:  username,
		Password:  testPassword,
		Password2: testPassword,
	})
	require.NoError(a.t, err)
	return u
}

// login 注册并登录，返回带会话的 client
func (a *testApp) login(username string) (*client, *model.User) {
	a.t.Helper()
	u := a.signUp(username)
	c := a.anonymous()
	w := c.postForm("/auth/login/", url.Values{"username": {username}, "password": {testPassword}, "next": {"/"}})
	require.Equal(a.t, http.StatusFound, w.Code)
	require.Equal(a.t, "/", w.Header().Get("Location"))
	return c, u
}

func (a *testApp) group(slug string) *model.Group {
	a.t.Helper()
	g := &model.Group{Title: "Group " + slug, Slug: slug}
	require.NoError(a.t, repository.NewGroupRepository(a.db).Create(context.Background(), g))
	return g
}

func (a *testApp) post(author *model.User, text string, group *model.Group) *model.Post {
	a.t.Helper()
	p := &model.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(a.t, repository.NewPostRepository(a.db).Create(context.Background(), p))
	return p
}

func (a *testApp) findPost(id string) *model.Post {
	a.t.Helper()
	p, err := repository.NewPostRepository(a.db).FindByID(context.Background(), id)
	require.NoError(a.t, err)
	return p
}

func TestIndex_ServesCachedPageUntilCleared(t *testing.T) {
	app := newTestApp(t)
	leo := app.signUp("leo")
	app.post(leo, "first post", nil)
	anon := app.anonymous()

	first := anon.get("/")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "first post")

	app.post(leo, "second post", nil)
	cached := anon.get("/")
	assert.Equal(t, "HIT", cached.Header().Get(cache.HeaderCache))
	assert.Equal(t, first.Body.Bytes(), cached.Body.Bytes())

	require.NoError(t, app.pages.Clear(context.Background()))
	fresh := anon.get("/")
	assert.NotEqual(t, first.Body.String(), fresh.Body.String())
	assert.Contains(t, fresh.Body.String(), "second post")
}

func TestIndex_Paginates(t *testing.T) {
	app := newTestApp(t)
	leo := app.signUp("leo")
	for i := 0; i < 13; i++ {
		app.post(leo, fmt.Sprintf("numbered post %02d", i), nil)
	}
	anon := app.anonymous()

	page1 := anon.get("/").Body.String()
	page2 := anon.get("/?page=2").Body.String()
	assert.Equal(t, 10, strings.Count(page1, `class="card"`))
	assert.Equal(t, 3, strings.Count(page2, `class="card"`))
	assert.Equal(t, page2, anon.get("/?page=99").Body.String(), "out of range pages clamp to the last one")

	huge := anon.get("/?page=99999999999999999999").Body.String()
	assert.Equal(t, 3, strings.Count(huge, `class="card"`))
	assert.Equal(t, page2, huge)
	assert.Equal(t, page1, anon.get("/?page=-99999999999999999999").Body.String())
}

func TestIndex_CachedPageSurvivesDeletingPosts(t *testing.T) {
	app := newTestApp(t)
	leo := app.signUp("leo")
	app.post(leo, "soon gone", nil)
	anon := app.anonymous()

	first := anon.get("/")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "soon gone")

	require.NoError(t, repository.NewPostRepository(app.db).DeleteAll(context.Background()))
	cached := anon.get("/")
	assert.Equal(t, "HIT", cached.Header().Get(cache.HeaderCache))
	assert.Equal(t, first.Body.Bytes(), cached.Body.Bytes())

	require.NoError(t, app.pages.Clear(context.Background()))
	fresh := anon.get("/")
	assert.NotContains(t, fresh.Body.String(), "soon gone")
}

func TestLoginRequiredPagesRedirect(t *testing.T) {
	app := newTestApp(t)
	anon := app.anonymous()

	for _, path := range []string{"/create/", "/follow/", "/profile/leo/follow/"} {
		w := anon.get(path)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Contains(t, w.Header().Get("Location"), "next="+path, path)
	}

	w := anon.postForm("/create/", url.Values{"text": {"sneaky"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=/create/", w.Header().Get("Location"))
	var n int64
	require.NoError(t, app.db.Model(&model.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLogin_FollowsNext(t *testing.T) {
	app := newTestApp(t)
	app.signUp("leo")
	c := app.anonymous()

	form := c.get("/auth/login/?next=/create/")
	require.Equal(t, http.StatusOK, form.Code)
	assert.Contains(t, form.Body.String(), `value="/create/"`)

	w := c.postForm("/auth/login/", url.Values{"username": {"leo"}, "password": {"wrong"}, "next": {"/create/"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "correct username and password")

	w = c.postForm("/auth/login/", url.Values{"username": {"leo"}, "password": {testPassword}, "next": {"/create/"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/create/", w.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, c.get("/create/").Code)

	w = c.get("/auth/logout/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusFound, c.get("/create/").Code)
}

func TestSignup(t *testing.T) {
	app := newTestApp(t)
	c := app.anonymous()
	assert.Equal(t, http.StatusOK, c.get("/auth/signup/").Code)

	w := c.postForm("/auth/signup/", url.Values{
		"username": {"new_user"}, "email": {"new@example.com"},
		"password1": {testPassword}, "password2": {"different-pass"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "didn&#39;t match")

	w = c.postForm("/auth/signup/", url.Values{
		"username": {"new_user"}, "email": {"new@example.com"},
		"password1": {testPassword}, "password2": {testPassword},
	})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusOK, c.get("/follow/").Code)
}

func TestCreatePost(t *testing.T) {
	app := newTestApp(t)
	app.group("cats")
	c, _ := app.login("leo")

	form := c.get("/create/")
	require.Equal(t, http.StatusOK, form.Code)
	assert.Contains(t, form.Body.String(), `value="cats"`)

	w := c.postMultipart("/create/", map[string]string{"text": "created through the form", "group": "cats"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/leo/", w.Header().Get("Location"))

	group := c.get("/group/cats/")
	assert.Contains(t, group.Body.String(), "created through the form")
	profile := c.get("/profile/leo/")
	assert.Contains(t, profile.Body.String(), "created through the form")
}

func TestCreatePost_InvalidFormIsNotSaved(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.login("leo")

	w := c.postMultipart("/create/", map[string]string{"text": "   ", "group": "nope"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.Contains(t, w.Body.String(), "Select a valid choice.")

	var n int64
	require.NoError(t, app.db.Model(&model.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	author, leo := app.login("leo")
	other, _ := app.login("ann")
	post := app.post(leo, "original text", nil)
	created := app.findPost(post.ID).CreatedAt
	editPath := "/posts/" + post.ID + "/edit/"
	detailPath := "/posts/" + post.ID + "/"

	w := other.get(editPath)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailPath, w.Header().Get("Location"))

	w = other.postMultipart(editPath, map[string]string{"text": "hijacked"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailPath, w.Header().Get("Location"))
	assert.Equal(t, "original text", app.findPost(post.ID).Text)

	w = app.anonymous().get(editPath)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "next="+editPath)

	form := author.get(editPath)
	require.Equal(t, http.StatusOK, form.Code)
	assert.Contains(t, form.Body.String(), "original text")

	w = author.postMultipart(editPath, map[string]string{"text": "edited text"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailPath, w.Header().Get("Location"))
	stored := app.findPost(post.ID)
	assert.Equal(t, "edited text", stored.Text)
	assert.True(t, stored.CreatedAt.Equal(created))

	assert.Equal(t, http.StatusNotFound, author.get("/posts/missing/edit/").Code)
}

func TestComments(t *testing.T) {
	app := newTestApp(t)
	c, leo := app.login("leo")
	post := app.post(leo, "commentable", nil)
	commentPath := "/posts/" + post.ID + "/comment/"

	w := app.anonymous().postForm(commentPath, url.Values{"text": {"drive-by"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/auth/login/")

	w = c.postForm(commentPath, url.Values{"text": {"   "}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	w = c.postForm(commentPath, url.Values{"text": {"lovely post"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/"+post.ID+"/", w.Header().Get("Location"))

	detail := app.anonymous().get("/posts/" + post.ID + "/")
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), "lovely post")
	assert.NotContains(t, detail.Body.String(), "drive-by")
}

func TestFollowRoutes(t *testing.T) {
	app := newTestApp(t)
	reader, _ := app.login("reader")
	leo := app.signUp("leo")
	app.post(leo, "for my followers", nil)

	assert.NotContains(t, reader.get("/follow/").Body.String(), "for my followers")

	for i := 0; i < 2; i++ {
		w := reader.get("/profile/leo/follow/")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/profile/leo/", w.Header().Get("Location"))
	}
	var n int64
	require.NoError(t, app.db.Model(&model.Follow{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	assert.Contains(t, reader.get("/follow/").Body.String(), "for my followers")
	assert.Contains(t, reader.get("/profile/leo/").Body.String(), "/profile/leo/unfollow/")

	w := reader.get("/profile/leo/unfollow/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.NotContains(t, reader.get("/follow/").Body.String(), "for my followers")

	// 自己关注自己不产生关系
	self, _ := app.login("solo")
	self.get("/profile/solo/follow/")
	require.NoError(t, app.db.Model(&model.Follow{}).Count(&n).Error)
	assert.Zero(t, n)

	assert.Equal(t, http.StatusNotFound, reader.get("/profile/ghost/follow/").Code)
}

func TestNotFoundPages(t *testing.T) {
	app := newTestApp(t)
	app.group("empty")
	anon := app.anonymous()

	for _, path := range []string{"/group/missing/", "/profile/ghost/", "/posts/missing/", "/definitely/not/here/"} {
		w := anon.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "Page not found", path)
	}

	w := anon.get("/group/empty/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No posts yet.")
}

func TestStaticPages(t *testing.T) {
	app := newTestApp(t)
	anon := app.anonymous()
	assert.Equal(t, http.StatusOK, anon.get("/about/author/").Code)
	assert.Equal(t, http.StatusOK, anon.get("/about/tech/").Code)
	assert.Equal(t, http.StatusOK, anon.get("/metrics").Code)
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestAPI(t *testing.T) {
	app := newTestApp(t)
	reader := app.signUp("reader")
	leo := app.signUp("leo")
	cats := app.group("cats")
	post := app.post(leo, "json post", cats)
	anon := app.anonymous()

	var got map[string]any
	w := anon.get("/api/posts/" + post.ID + "/")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, post.ID, got["id"])
	assert.Equal(t, "json post", got["text"])
	assert.Equal(t, "leo", got["author"])
	assert.Equal(t, "cats", got["group"])
	assert.Contains(t, got, "pub_date")
	assert.Nil(t, got["image"])

	assert.Equal(t, http.StatusNotFound, anon.get("/api/posts/missing/").Code)

	tokenReq := func(password string) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"username":"reader","password":%q}`, password)
		req := httptest.NewRequest(http.MethodPost, "/api/token/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return anon.do(req)
	}
	assert.Equal(t, http.StatusUnauthorized, tokenReq("nope").Code)

	var tok struct {
		Token string `json:"token"`
	}
	w = tokenReq(testPassword)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &tok)
	require.NotEmpty(t, tok.Token)

	bearer := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		req.Header.Set("Content-Type", "application/json")
		return anon.do(req)
	}

	assert.Equal(t, http.StatusUnauthorized, anon.get("/api/follow/").Code)
	assert.Equal(t, http.StatusOK, bearer(http.MethodPost, "/api/relations/follow/", `{"username":"leo"}`).Code)

	var feed struct {
		Count   int              `json:"count"`
		Results []map[string]any `json:"results"`
	}
	w = bearer(http.MethodGet, "/api/follow/", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &feed)
	assert.Equal(t, 1, feed.Count)
	require.Len(t, feed.Results, 1)
	assert.Equal(t, post.ID, feed.Results[0]["id"])

	var fans struct {
		List []string `json:"list"`
	}
	decode(t, anon.get("/api/users/"+leo.ID+"/fans/"), &fans)
	assert.Equal(t, []string{reader.ID}, fans.List)

	var window struct {
		PageSize int      `json:"page_size"`
		List     []string `json:"list"`
	}
	decode(t, anon.get("/api/users/"+leo.ID+"/fans/?page_size=1000000"), &window)
	assert.Equal(t, service.MaxListPageSize, window.PageSize)
	assert.Equal(t, []string{reader.ID}, window.List)

	assert.Equal(t, http.StatusBadRequest, bearer(http.MethodPost, "/api/relations/unfollow/", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, bearer(http.MethodPost, "/api/relations/follow/", `{"username":"ghost"}`).Code)
	assert.Equal(t, http.StatusOK, bearer(http.MethodPost, "/api/relations/unfollow/", `{"username":"leo"}`).Code)
	w = bearer(http.MethodGet, "/api/follow/", "")
	decode(t, w, &feed)
	assert.Zero(t, feed.Count)
}
