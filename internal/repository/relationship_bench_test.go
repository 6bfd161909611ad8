package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/d60-Lab/gin-blog/internal/model"
)

func BenchmarkFollowWrite_WithFanRedundancy(b *testing.B) {
	db := setupDB(b)
	followRepo := NewFollowRepository(db)
	ctx := context.Background()

	// 预创建部分用户
	users := make([]model.User, 1000)
	for i := range users {
		users[i] = model.User{ID: fmt.Sprintf("u%04d", i), Username: fmt.Sprintf("u%04d", i), Password: "p"}
	}
	if err := db.CreateInBatches(&users, 200).Error; err != nil {
		b.Fatalf("seed users: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[rng.Intn(len(users))].ID
		to := users[rng.Intn(len(users))].ID
		if from == to {
			continue
		}
		_ = followRepo.Create(ctx, from, to)
	}
}

func BenchmarkPersonalFeedQuery(b *testing.B) {
	db := setupDB(b)
	followRepo := NewFollowRepository(db)
	postRepo := NewPostRepository(db)
	ctx := context.Background()

	// 构造：reader 关注 N 个作者，每个作者 5 篇帖子
	const N = 200
	reader := model.User{ID: "reader", Username: "reader", Password: "p"}
	_ = db.Create(&reader).Error
	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < N; i++ {
		uid := fmt.Sprintf("a%v", i)
		_ = db.Create(&model.User{ID: uid, Username: uid, Password: "p"}).Error
		_ = followRepo.Create(ctx, reader.ID, uid)
		for j := 0; j < 5; j++ {
			_ = postRepo.Create(ctx, &model.Post{AuthorID: uid, Text: "hello", CreatedAt: base.Add(time.Duration(i*5+j) * time.Second)})
		}
	}

	b.ResetTimer()
	b.Run("ListByFollowed", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = postRepo.ListByFollowed(ctx, reader.ID, 0, 10)
		}
	})

	b.Run("CountByFollowed", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = postRepo.CountByFollowed(ctx, reader.ID)
		}
	})
}
