package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/service"
)

func pageParam(c *gin.Context) int { return service.ParsePage(c.Query("page")) }

// Index 全站最新帖子
func (h *Handler) Index(c *gin.Context) {
	page, err := h.feedService.GlobalFeed(c.Request.Context(), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "index", gin.H{"Page": page})
}

// GroupPosts 社区帖子
func (h *Handler) GroupPosts(c *gin.Context) {
	feed, err := h.feedService.GroupFeed(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "group", gin.H{"Group": feed.Group, "Page": feed.Page})
}

// Profile 作者主页
func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.feedService.AuthorProfile(c.Request.Context(), auth.ViewerFrom(c), c.Param("username"), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "profile", gin.H{"Profile": profile})
}

// PostDetail 帖子详情与评论
func (h *Handler) PostDetail(c *gin.Context) {
	h.renderDetail(c, c.Param("id"), "", nil)
}

func (h *Handler) renderDetail(c *gin.Context, postID, commentText string, errs map[string]string) {
	detail, err := h.feedService.PostDetail(c.Request.Context(), postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if errs == nil {
		errs = map[string]string{}
	}
	h.html(c, http.StatusOK, "post_detail", gin.H{
		"Detail":      detail,
		"CommentText": commentText,
		"Errors":      errs,
	})
}

// FollowIndex 关注作者的帖子
func (h *Handler) FollowIndex(c *gin.Context) {
	page, err := h.feedService.PersonalFeed(c.Request.Context(), auth.ViewerFrom(c), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "follow", gin.H{"Page": page})
}

func (h *Handler) AboutAuthor(c *gin.Context) { h.html(c, http.StatusOK, "about_author", nil) }

func (h *Handler) AboutTech(c *gin.Context) { h.html(c, http.StatusOK, "about_tech", nil) }
