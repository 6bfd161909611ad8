package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/service"
)

// SignupForm 注册页
func (h *Handler) SignupForm(c *gin.Context) {
	h.html(c, http.StatusOK, "signup", gin.H{"Form": service.SignUpInput{}})
}

// Signup 注册并登录，跳转首页
func (h *Handler) Signup(c *gin.Context) {
	var in service.SignUpInput
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.userService.SignUp(c.Request.Context(), in)
	if err != nil {
		if fields, ok := validationFields(err); ok {
			in.Password, in.Password2 = "", ""
			h.html(c, http.StatusOK, "signup", gin.H{"Form": in, "Errors": fields})
			return
		}
		h.fail(c, err)
		return
	}
	if err := auth.Login(c, u); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// LoginForm 登录页；next 原样回填到表单
func (h *Handler) LoginForm(c *gin.Context) {
	h.html(c, http.StatusOK, "login", gin.H{"Next": c.Query("next")})
}

// Login 校验密码，成功后跳到 next（仅站内路径）
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	next := c.PostForm("next")
	u, err := h.userService.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.html(c, http.StatusOK, "login", gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "Please enter a correct username and password.",
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := auth.Login(c, u); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, auth.SafeNext(next, "/"))
}

// Logout 清空会话
func (h *Handler) Logout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
