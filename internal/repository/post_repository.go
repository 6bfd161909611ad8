package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/model"
)

// PostRepository 帖子仓储；列表统一按 created_at DESC, id DESC 排序，
// 作者通过 JOIN 带出，社区一次性预加载，避免逐行查询
type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	// Update 仅更新 text / group_id / image，不修改 created_at
	Update(ctx context.Context, p *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)

	ListAll(ctx context.Context, offset, limit int) ([]*model.Post, error)
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Post, error)
	ListByGroup(ctx context.Context, groupID string, offset, limit int) ([]*model.Post, error)
	// ListByFollowed 列出 followerID 关注的作者的帖子
	ListByFollowed(ctx context.Context, followerID string, offset, limit int) ([]*model.Post, error)

	CountAll(ctx context.Context) (int64, error)
	CountByAuthor(ctx context.Context, authorID string) (int64, error)
	CountByGroup(ctx context.Context, groupID string) (int64, error)
	CountByFollowed(ctx context.Context, followerID string) (int64, error)

	DeleteAll(ctx context.Context) error
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

// scope 描述一个帖子集合
type scope func(tx *gorm.DB) *gorm.DB

func allPosts(tx *gorm.DB) *gorm.DB { return tx }

func byAuthor(authorID string) scope {
	return func(tx *gorm.DB) *gorm.DB { return tx.Where("posts.author_id = ?", authorID) }
}

func byGroup(groupID string) scope {
	return func(tx *gorm.DB) *gorm.DB { return tx.Where("posts.group_id = ?", groupID) }
}

func byFollowed(db *gorm.DB, followerID string) scope {
	return func(tx *gorm.DB) *gorm.DB {
		sub := db.Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", followerID)
		return tx.Where("posts.author_id IN (?)", sub)
	}
}

func (r *postRepository) list(ctx context.Context, s scope, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := s(r.db.WithContext(ctx).Model(&model.Post{})).
		Joins("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) count(ctx context.Context, s scope) (int64, error) {
	var cnt int64
	err := s(r.db.WithContext(ctx).Model(&model.Post{})).Count(&cnt).Error
	return cnt, err
}

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Omit("Author", "Group").Create(p).Error
}

func (r *postRepository) Update(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{ID: p.ID}).
		Select("text", "group_id", "image", "updated_at").
		Updates(map[string]any{
			"text":       p.Text,
			"group_id":   p.GroupID,
			"image":      p.Image,
			"updated_at": time.Now(),
		}).Error
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).
		Joins("Author").
		Preload("Group").
		Where("posts.id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) ListAll(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	return r.list(ctx, allPosts, offset, limit)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Post, error) {
	return r.list(ctx, byAuthor(authorID), offset, limit)
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID string, offset, limit int) ([]*model.Post, error) {
	return r.list(ctx, byGroup(groupID), offset, limit)
}

func (r *postRepository) ListByFollowed(ctx context.Context, followerID string, offset, limit int) ([]*model.Post, error) {
	return r.list(ctx, byFollowed(r.db.WithContext(ctx), followerID), offset, limit)
}

func (r *postRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, allPosts)
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	return r.count(ctx, byAuthor(authorID))
}

func (r *postRepository) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	return r.count(ctx, byGroup(groupID))
}

func (r *postRepository) CountByFollowed(ctx context.Context, followerID string) (int64, error) {
	return r.count(ctx, byFollowed(r.db.WithContext(ctx), followerID))
}

func (r *postRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return all.Delete(&model.Post{}).Error
	})
}
