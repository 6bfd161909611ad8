package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
)

const userIDKey = "user_id"

// Sessions 基于签名 cookie 的会话中间件
func Sessions(cfg config.SessionConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cfg.Name, store)
}

// Login 把用户写入会话
func Login(c *gin.Context, u *model.User) error {
	s := sessions.Default(c)
	s.Set(userIDKey, u.ID)
	return s.Save()
}

// Logout 清空会话并让浏览器删除 cookie
func Logout(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	return s.Save()
}

func sessionUserID(c *gin.Context) string {
	id, _ := sessions.Default(c).Get(userIDKey).(string)
	return id
}
