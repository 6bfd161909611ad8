package handler

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// Handler HTML 页面与 JSON API 的处理器
type Handler struct {
	feedService service.FeedService
	postService service.PostService
	relService  service.RelationshipService
	userService service.UserService
	jwt         *auth.JWT
	loginURL    string
}

func NewHandler(
	feed service.FeedService,
	posts service.PostService,
	rel service.RelationshipService,
	users service.UserService,
	jwt *auth.JWT,
	loginURL string,
) *Handler {
	return &Handler{
		feedService: feed,
		postService: posts,
		relService:  rel,
		userService: users,
		jwt:         jwt,
		loginURL:    loginURL,
	}
}

// html 渲染页面，统一注入当前身份
func (h *Handler) html(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Viewer"] = auth.ViewerFrom(c)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	c.HTML(status, page, data)
}

// NotFound 404 页面，同时用于 NoRoute
func (h *Handler) NotFound(c *gin.Context) {
	h.html(c, http.StatusNotFound, "404", gin.H{"Path": c.Request.URL.Path})
}

// fail 把服务层错误映射成页面响应
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.NotFound(c)
	case errors.Is(err, service.ErrUnauthorized):
		c.Redirect(http.StatusFound, auth.LoginRedirect(h.loginURL, c.Request.URL.Path))
	default:
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		_ = c.Error(err)
		h.html(c, http.StatusInternalServerError, "500", nil)
	}
}

func validationFields(err error) (map[string]string, bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
