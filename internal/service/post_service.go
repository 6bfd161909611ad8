package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/storage"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// PostInput 发帖 / 编辑表单。Group 可以是 slug 或 ID；Image 为空表示不上传
type PostInput struct {
	Text  string    `form:"text" validate:"required"`
	Group string    `form:"group"`
	Image io.Reader `form:"-"`
}

// CommentInput 评论表单
type CommentInput struct {
	Text string `form:"text" validate:"required"`
}

// PostService 写路径：发帖、编辑、评论
type PostService interface {
	CreatePost(ctx context.Context, viewer auth.Viewer, in PostInput) (*model.Post, error)
	// EditPost 只有作者本人可以编辑；created_at 保持不变
	EditPost(ctx context.Context, viewer auth.Viewer, postID string, in PostInput) (*model.Post, error)
	AddComment(ctx context.Context, viewer auth.Viewer, postID, text string) (*model.Comment, error)
	Groups(ctx context.Context) ([]*model.Group, error)
	// ImageURL 把帖子的存储路径转成可访问地址
	ImageURL(path string) string
}

type postService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	comments repository.CommentRepository
	store    storage.Storage
	maxWidth uint
}

func NewPostService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	comments repository.CommentRepository,
	store storage.Storage,
	maxImageWidth uint,
) PostService {
	return &postService{posts: posts, groups: groups, comments: comments, store: store, maxWidth: maxImageWidth}
}

func (s *postService) CreatePost(ctx context.Context, viewer auth.Viewer, in PostInput) (*model.Post, error) {
	if !viewer.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	ctx, span, _ := startSpan(ctx, "PostService.CreatePost")
	defer span.End()

	post := &model.Post{AuthorID: viewer.ID()}
	saved, err := s.apply(ctx, post, in)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	post.Author = *viewer.User
	logger.Info("post created", zap.String("post_id", post.ID), zap.String("author", viewer.User.Username))
	return post, nil
}

func (s *postService) EditPost(ctx context.Context, viewer auth.Viewer, postID string, in PostInput) (*model.Post, error) {
	ctx, span, _ := startSpan(ctx, "PostService.EditPost", attribute.String("post_id", postID))
	defer span.End()

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post %q", postID)
	}
	if !viewer.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	if !viewer.Is(post.AuthorID) {
		return nil, ErrForbidden
	}
	saved, err := s.apply(ctx, post, in)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post); err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	return post, nil
}

// apply 校验表单并写入 post；任一字段不合法时不修改 post，也不落盘图片。
// 返回本次新保存的图片路径，数据库写入失败时由调用方清理
func (s *postService) apply(ctx context.Context, post *model.Post, in PostInput) (string, error) {
	in.Text = strings.TrimSpace(in.Text)
	fields := checkStruct(in)

	group, err := s.resolveGroup(ctx, strings.TrimSpace(in.Group))
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return "", err
		}
		fields["group"] = verr.Fields["group"]
	}

	var img *storage.Image
	if in.Image != nil {
		img, err = storage.PrepareImage(in.Image, s.maxWidth)
		switch {
		case errors.Is(err, storage.ErrNotImage):
			fields["image"] = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
		case errors.Is(err, storage.ErrImageTooLarge):
			fields["image"] = "The uploaded image is too large."
		case err != nil:
			return "", err
		}
	}
	if err := fieldsError(fields); err != nil {
		return "", err
	}

	var saved string
	if img != nil {
		saved = "posts/" + uuid.New().String() + img.Ext
		if err := s.store.Save(ctx, saved, bytes.NewReader(img.Data), img.ContentType); err != nil {
			return "", err
		}
		post.Image = saved
	}
	post.Text = in.Text
	post.Group = group
	post.GroupID = nil
	if group != nil {
		post.GroupID = &group.ID
	}
	post.UpdatedAt = time.Now()
	return saved, nil
}

// discard 删除写库失败后遗留的图片
func (s *postService) discard(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.store.Delete(ctx, path); err != nil {
		logger.Warn("orphaned image not removed", zap.String("path", path), zap.Error(err))
	}
}

func (s *postService) resolveGroup(ctx context.Context, ref string) (*model.Group, error) {
	if ref == "" {
		return nil, nil
	}
	g, err := s.groups.FindBySlug(ctx, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g, err = s.groups.FindByID(ctx, ref)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newValidationError("group", "Select a valid choice. That choice is not one of the available choices.")
	}
	return g, err
}

func (s *postService) AddComment(ctx context.Context, viewer auth.Viewer, postID, text string) (*model.Comment, error) {
	if !viewer.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post %q", postID)
	}
	in := CommentInput{Text: strings.TrimSpace(text)}
	if err := fieldsError(checkStruct(in)); err != nil {
		return nil, err
	}
	c := &model.Comment{PostID: post.ID, AuthorID: viewer.ID(), Text: in.Text}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	c.Author = *viewer.User
	return c, nil
}

func (s *postService) Groups(ctx context.Context) ([]*model.Group, error) {
	return s.groups.List(ctx)
}

func (s *postService) ImageURL(path string) string {
	return s.store.URL(path)
}
