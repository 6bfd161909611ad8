package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// PostResponse 帖子 JSON 表示
type PostResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	PubDate   time.Time `json:"pub_date"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    string    `json:"author"`
	Group     *string   `json:"group"`
	Image     *string   `json:"image"`
}

// FeedResponse 分页帖子列表
type FeedResponse struct {
	Page     int             `json:"page"`
	NumPages int             `json:"num_pages"`
	Count    int64           `json:"count"`
	Results  []*PostResponse `json:"results"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 签发的访问令牌
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) toPostResponse(p *model.Post) *PostResponse {
	out := &PostResponse{
		ID:        p.ID,
		Text:      p.Text,
		PubDate:   p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Author:    p.Author.Username,
	}
	if p.Group != nil {
		out.Group = &p.Group.Slug
	}
	if p.Image != "" {
		url := h.postService.ImageURL(p.Image)
		out.Image = &url
	}
	return out
}

// bindErrors 把 binding 错误转成字段 -> 提示
func bindErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = "failed on the '" + fe.Tag() + "' rule"
	}
	return fields
}

// GetPost 查询单个帖子
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=PostResponse}
// @Failure 404 {object} response.Response
// @Router /api/posts/{id}/ [get]
func (h *Handler) GetPost(c *gin.Context) {
	detail, err := h.feedService.PostDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, h.toPostResponse(detail.Post))
}

// IssueToken 用户名密码换取 JWT
// @Summary 获取访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body tokenRequest true "登录信息"
// @Success 200 {object} response.Response{data=TokenResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/token/ [post]
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, bindErrors(err))
		return
	}
	u, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Unauthorized(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	token, exp, err := h.jwt.Issue(u)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, TokenResponse{Token: token, ExpiresAt: exp})
}

// APIFollowFeed 关注作者的帖子
// @Summary 关注流
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=FeedResponse}
// @Failure 401 {object} response.Response
// @Router /api/follow/ [get]
func (h *Handler) APIFollowFeed(c *gin.Context) {
	page, err := h.feedService.PersonalFeed(c.Request.Context(), auth.ViewerFrom(c), pageParam(c))
	if errors.Is(err, service.ErrUnauthorized) {
		response.Unauthorized(c, "authentication required")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := FeedResponse{
		Page:     page.Number,
		NumPages: page.NumPages,
		Count:    page.Total,
		Results:  make([]*PostResponse, len(page.Items)),
	}
	for i, p := range page.Items {
		out.Results[i] = h.toPostResponse(p)
	}
	response.Success(c, out)
}
