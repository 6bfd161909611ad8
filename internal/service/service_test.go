package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/storage"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

type testEnv struct {
	userRepo    repository.UserRepository
	groupRepo   repository.GroupRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository
	fanRepo     repository.FanRepository

	rel   RelationshipService
	feed  FeedService
	posts PostService
	users UserService

	store    *storage.DiskStorage
	mediaDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	e := &testEnv{
		userRepo:    repository.NewUserRepository(db),
		groupRepo:   repository.NewGroupRepository(db),
		postRepo:    repository.NewPostRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		followRepo:  repository.NewFollowRepository(db),
		fanRepo:     repository.NewFanRepository(db),
		mediaDir:    t.TempDir(),
	}
	e.store = storage.NewDiskStorage(e.mediaDir, "/media/")
	e.rel = NewRelationshipService(e.userRepo, e.followRepo, e.fanRepo)
	e.feed = NewFeedService(e.userRepo, e.groupRepo, e.postRepo, e.commentRepo, e.rel)
	e.posts = NewPostService(e.postRepo, e.groupRepo, e.commentRepo, e.store, 960)
	e.users = NewUserService(e.userRepo, bcrypt.MinCost)
	return e
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Password: "x"}
	require.NoError(t, e.userRepo.Create(context.Background(), u))
	return u
}

func (e *testEnv) group(t *testing.T, slug string) *model.Group {
	t.Helper()
	g := &model.Group{Title: "Group " + slug, Slug: slug}
	require.NoError(t, e.groupRepo.Create(context.Background(), g))
	return g
}

// seed 写入 n 条帖子，第 i 条的 created_at 为 base + i 分钟
func (e *testEnv) seed(t *testing.T, author *model.User, group *model.Group, n int, base time.Time) []*model.Post {
	t.Helper()
	out := make([]*model.Post, n)
	for i := 0; i < n; i++ {
		p := &model.Post{
			Text:      fmt.Sprintf("%s post %d", author.Username, i),
			AuthorID:  author.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if group != nil {
			p.GroupID = &group.ID
		}
		require.NoError(t, e.postRepo.Create(context.Background(), p))
		out[i] = p
	}
	return out
}

func ids(posts []*model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
