package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// ProfileFollow 关注作者（幂等），返回作者主页
func (h *Handler) ProfileFollow(c *gin.Context) {
	username := c.Param("username")
	if err := h.relService.Follow(c.Request.Context(), auth.ViewerFrom(c), username); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+username+"/")
}

// ProfileUnfollow 取消关注（幂等），返回作者主页
func (h *Handler) ProfileUnfollow(c *gin.Context) {
	username := c.Param("username")
	if err := h.relService.Unfollow(c.Request.Context(), auth.ViewerFrom(c), username); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+username+"/")
}

func listParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return service.ListWindow(page, pageSize)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Produce json
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量（最多 100）" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 500 {object} response.Response
// @Router /api/users/{user_id}/following/ [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	userID := c.Param("user_id")
	page, pageSize := listParams(c)
	list, err := h.relService.ListFollowing(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFans 查询某用户的粉丝
// @Summary 查询粉丝列表（来自冗余表）
// @Tags 关系链
// @Produce json
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量（最多 100）" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 500 {object} response.Response
// @Router /api/users/{user_id}/fans/ [get]
func (h *Handler) ListFans(c *gin.Context) {
	userID := c.Param("user_id")
	page, pageSize := listParams(c)
	list, err := h.relService.ListFans(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

type followRequest struct {
	Username string `json:"username" binding:"required"`
}

// APIFollow 当前 token 用户关注指定作者
// @Summary 关注作者
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body followRequest true "被关注的用户名"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/relations/follow/ [post]
func (h *Handler) APIFollow(c *gin.Context) {
	h.apiRelation(c, h.relService.Follow)
}

// APIUnfollow 当前 token 用户取消关注
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body followRequest true "取消关注的用户名"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/relations/unfollow/ [post]
func (h *Handler) APIUnfollow(c *gin.Context) {
	h.apiRelation(c, h.relService.Unfollow)
}

func (h *Handler) apiRelation(c *gin.Context, op func(ctx context.Context, v auth.Viewer, username string) error) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, bindErrors(err))
		return
	}
	err := op(c.Request.Context(), auth.ViewerFrom(c), req.Username)
	switch {
	case err == nil:
		response.Success(c, nil)
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, "authentication required")
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
