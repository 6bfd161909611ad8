package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/metrics"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// RelationshipService 关系链服务：关注 / 取关均幂等，自己关注自己为空操作
type RelationshipService interface {
	Follow(ctx context.Context, follower auth.Viewer, targetUsername string) error
	Unfollow(ctx context.Context, follower auth.Viewer, targetUsername string) error
	IsFollowing(ctx context.Context, followerID, authorID string) (bool, error)
	FollowerCount(ctx context.Context, authorID string) (int64, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error)
}

type relationshipService struct {
	users      repository.UserRepository
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
}

func NewRelationshipService(users repository.UserRepository, followRepo repository.FollowRepository, fanRepo repository.FanRepository) RelationshipService {
	return &relationshipService{users: users, followRepo: followRepo, fanRepo: fanRepo}
}

func (s *relationshipService) Follow(ctx context.Context, follower auth.Viewer, targetUsername string) error {
	if !follower.IsAuthenticated() {
		return ErrUnauthorized
	}
	target, err := s.users.FindByUsername(ctx, targetUsername)
	if err != nil {
		return notFound(err, "user %q", targetUsername)
	}
	if target.ID == follower.ID() {
		metrics.FollowOps.WithLabelValues("follow", "self").Inc()
		return nil
	}
	if err := s.followRepo.Create(ctx, follower.ID(), target.ID); err != nil {
		metrics.FollowOps.WithLabelValues("follow", "error").Inc()
		return err
	}
	metrics.FollowOps.WithLabelValues("follow", "ok").Inc()
	logger.Debug("follow", zap.String("follower", follower.ID()), zap.String("followee", target.ID))
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, follower auth.Viewer, targetUsername string) error {
	if !follower.IsAuthenticated() {
		return ErrUnauthorized
	}
	target, err := s.users.FindByUsername(ctx, targetUsername)
	if err != nil {
		return notFound(err, "user %q", targetUsername)
	}
	if err := s.followRepo.Delete(ctx, follower.ID(), target.ID); err != nil {
		metrics.FollowOps.WithLabelValues("unfollow", "error").Inc()
		return err
	}
	metrics.FollowOps.WithLabelValues("unfollow", "ok").Inc()
	logger.Debug("unfollow", zap.String("follower", follower.ID()), zap.String("followee", target.ID))
	return nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, authorID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, authorID)
}

func (s *relationshipService) FollowerCount(ctx context.Context, authorID string) (int64, error) {
	return s.fanRepo.Count(ctx, authorID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	page, pageSize = ListWindow(page, pageSize)
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	page, pageSize = ListWindow(page, pageSize)
	offset := (page - 1) * pageSize
	items, err := s.fanRepo.ListFans(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, nil
}
