package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/repository"
)

const viewerKey = "viewer"

// LoadViewer 从会话解析当前用户；会话里的用户已不存在时按匿名处理
func LoadViewer(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := Anonymous()
		if id := sessionUserID(c); id != "" {
			if u, err := users.FindByID(c.Request.Context(), id); err == nil {
				v = As(u)
			}
		}
		SetViewer(c, v)
		c.Next()
	}
}

// SetViewer 设置当前请求的身份
func SetViewer(c *gin.Context, v Viewer) { c.Set(viewerKey, v) }

// ViewerFrom 读取 LoadViewer / BearerViewer 放入的身份，没有则为匿名
func ViewerFrom(c *gin.Context) Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(Viewer); ok {
			return viewer
		}
	}
	return Anonymous()
}

// LoginRedirect 登录地址，next 为当前路径（保留斜杠）
func LoginRedirect(loginURL, path string) string {
	next := strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "next=" + next
}

// RequireLogin 匿名访问重定向到登录页
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ViewerFrom(c).IsAuthenticated() {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, LoginRedirect(loginURL, c.Request.URL.Path))
		c.Abort()
	}
}

// SafeNext 只接受站内相对路径，防止登录后跳到外部站点
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}
