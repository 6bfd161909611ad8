package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/metrics"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
)

var tracer = otel.Tracer("github.com/d60-Lab/gin-blog/internal/service")

// PostPage 帖子分页
type PostPage = Page[*model.Post]

// GroupFeed 社区页
type GroupFeed struct {
	Group *model.Group
	Page  PostPage
}

// Profile 作者主页。Following 仅在 CanFollow（已登录且非本人）时有意义
type Profile struct {
	Author        *model.User
	Page          PostPage
	PostCount     int64
	FollowerCount int64
	CanFollow     bool
	Following     bool
}

// PostDetail 帖子详情：作者发帖总数 + 全部评论（旧 -> 新）
type PostDetail struct {
	Post            *model.Post
	AuthorPostCount int64
	Comments        []*model.Comment
}

// FeedService 可见性与信息流：纯查询组合层，不持有状态，
// 身份通过 auth.Viewer 显式传入
type FeedService interface {
	GlobalFeed(ctx context.Context, page int) (PostPage, error)
	GroupFeed(ctx context.Context, slug string, page int) (*GroupFeed, error)
	AuthorProfile(ctx context.Context, viewer auth.Viewer, username string, page int) (*Profile, error)
	PostDetail(ctx context.Context, postID string) (*PostDetail, error)
	PersonalFeed(ctx context.Context, viewer auth.Viewer, page int) (PostPage, error)
}

type feedService struct {
	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	rel      RelationshipService
}

func NewFeedService(
	users repository.UserRepository,
	groups repository.GroupRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	rel RelationshipService,
) FeedService {
	return &feedService{users: users, groups: groups, posts: posts, comments: comments, rel: rel}
}

func (s *feedService) paginate(
	requested int,
	count func() (int64, error),
	list func(offset, limit int) ([]*model.Post, error),
) (PostPage, error) {
	total, err := count()
	if err != nil {
		return PostPage{}, err
	}
	page := NewPage[*model.Post](total, requested, DefaultPageSize)
	if total == 0 {
		return page, nil
	}
	items, err := list(page.Offset(), page.Size)
	if err != nil {
		return PostPage{}, err
	}
	page.Items = items
	return page, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

func (s *feedService) GlobalFeed(ctx context.Context, page int) (PostPage, error) {
	ctx, span, start := startSpan(ctx, "FeedService.GlobalFeed", attribute.Int("page", page))
	defer span.End()
	defer metrics.ObserveFeed("global", start)

	return s.paginate(page,
		func() (int64, error) { return s.posts.CountAll(ctx) },
		func(offset, limit int) ([]*model.Post, error) { return s.posts.ListAll(ctx, offset, limit) },
	)
}

func (s *feedService) GroupFeed(ctx context.Context, slug string, page int) (*GroupFeed, error) {
	ctx, span, start := startSpan(ctx, "FeedService.GroupFeed", attribute.String("slug", slug), attribute.Int("page", page))
	defer span.End()
	defer metrics.ObserveFeed("group", start)

	group, err := s.groups.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "group %q", slug)
	}
	p, err := s.paginate(page,
		func() (int64, error) { return s.posts.CountByGroup(ctx, group.ID) },
		func(offset, limit int) ([]*model.Post, error) { return s.posts.ListByGroup(ctx, group.ID, offset, limit) },
	)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: p}, nil
}

func (s *feedService) AuthorProfile(ctx context.Context, viewer auth.Viewer, username string, page int) (*Profile, error) {
	ctx, span, start := startSpan(ctx, "FeedService.AuthorProfile", attribute.String("username", username), attribute.Int("page", page))
	defer span.End()
	defer metrics.ObserveFeed("profile", start)

	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "user %q", username)
	}
	p, err := s.paginate(page,
		func() (int64, error) { return s.posts.CountByAuthor(ctx, author.ID) },
		func(offset, limit int) ([]*model.Post, error) { return s.posts.ListByAuthor(ctx, author.ID, offset, limit) },
	)
	if err != nil {
		return nil, err
	}
	followers, err := s.rel.FollowerCount(ctx, author.ID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Author:        author,
		Page:          p,
		PostCount:     p.Total,
		FollowerCount: followers,
	}
	if viewer.IsAuthenticated() && !viewer.Is(author.ID) {
		profile.CanFollow = true
		if profile.Following, err = s.rel.IsFollowing(ctx, viewer.ID(), author.ID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func (s *feedService) PostDetail(ctx context.Context, postID string) (*PostDetail, error) {
	ctx, span, start := startSpan(ctx, "FeedService.PostDetail", attribute.String("post_id", postID))
	defer span.End()
	defer metrics.ObserveFeed("detail", start)

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post %q", postID)
	}
	count, err := s.posts.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, AuthorPostCount: count, Comments: comments}, nil
}

func (s *feedService) PersonalFeed(ctx context.Context, viewer auth.Viewer, page int) (PostPage, error) {
	if !viewer.IsAuthenticated() {
		return PostPage{}, ErrUnauthorized
	}
	ctx, span, start := startSpan(ctx, "FeedService.PersonalFeed", attribute.Int("page", page))
	defer span.End()
	defer metrics.ObserveFeed("follow", start)

	uid := viewer.ID()
	return s.paginate(page,
		func() (int64, error) { return s.posts.CountByFollowed(ctx, uid) },
		func(offset, limit int) ([]*model.Post, error) { return s.posts.ListByFollowed(ctx, uid, offset, limit) },
	)
}
