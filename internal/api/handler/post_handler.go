package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/service"
)

// postForm 从 multipart 表单读取发帖字段；调用方负责关闭返回的文件
func postForm(c *gin.Context) (service.PostInput, multipart.File, error) {
	in := service.PostInput{Text: c.PostForm("text"), Group: c.PostForm("group")}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, err
	}
	if fh.Size == 0 {
		return in, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, nil, err
	}
	in.Image = f
	return in, f, nil
}

func closeFile(f io.Closer) {
	if f != nil {
		_ = f.Close()
	}
}

func (h *Handler) renderPostForm(c *gin.Context, isEdit bool, post *model.Post, in service.PostInput, errs map[string]string) {
	groups, err := h.postService.Groups(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if errs == nil {
		errs = map[string]string{}
	}
	data := gin.H{
		"IsEdit": isEdit,
		"Groups": groups,
		"Form":   in,
		"Errors": errs,
	}
	if post != nil {
		data["Post"] = post
		data["CurrentImage"] = post.Image
	}
	h.html(c, http.StatusOK, "post_form", data)
}

// CreateForm 新帖表单
func (h *Handler) CreateForm(c *gin.Context) {
	h.renderPostForm(c, false, nil, service.PostInput{}, nil)
}

// Create 发帖，成功后跳转到作者主页
func (h *Handler) Create(c *gin.Context) {
	viewer := auth.ViewerFrom(c)
	in, f, err := postForm(c)
	defer closeFile(f)
	if err != nil {
		h.renderPostForm(c, false, nil, in, map[string]string{"image": "Upload a valid image."})
		return
	}

	if _, err := h.postService.CreatePost(c.Request.Context(), viewer, in); err != nil {
		if fields, ok := validationFields(err); ok {
			in.Image = nil
			h.renderPostForm(c, false, nil, in, fields)
			return
		}
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+viewer.User.Username+"/")
}

// EditForm 编辑表单；非作者跳回详情页
func (h *Handler) EditForm(c *gin.Context) {
	postID := c.Param("id")
	detail, err := h.feedService.PostDetail(c.Request.Context(), postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	post := detail.Post
	if !auth.ViewerFrom(c).Is(post.AuthorID) {
		c.Redirect(http.StatusFound, "/posts/"+post.ID+"/")
		return
	}
	in := service.PostInput{Text: post.Text}
	if post.GroupID != nil {
		in.Group = *post.GroupID
	}
	h.renderPostForm(c, true, post, in, nil)
}

// Edit 保存编辑
func (h *Handler) Edit(c *gin.Context) {
	postID := c.Param("id")
	in, f, err := postForm(c)
	defer closeFile(f)
	if err != nil {
		h.renderPostForm(c, true, nil, in, map[string]string{"image": "Upload a valid image."})
		return
	}

	post, err := h.postService.EditPost(c.Request.Context(), auth.ViewerFrom(c), postID, in)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/posts/"+post.ID+"/")
	case errors.Is(err, service.ErrForbidden):
		c.Redirect(http.StatusFound, "/posts/"+postID+"/")
	default:
		if fields, ok := validationFields(err); ok {
			in.Image = nil
			h.renderPostForm(c, true, nil, in, fields)
			return
		}
		h.fail(c, err)
	}
}

// AddComment 评论；文本为空时带错误重新渲染详情页
func (h *Handler) AddComment(c *gin.Context) {
	postID := c.Param("id")
	text := c.PostForm("text")
	if _, err := h.postService.AddComment(c.Request.Context(), auth.ViewerFrom(c), postID, text); err != nil {
		if fields, ok := validationFields(err); ok {
			h.renderDetail(c, postID, text, fields)
			return
		}
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/posts/"+postID+"/")
}
