package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/database"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

const (
	seedPassword  = "password123"
	seedBatchSize = 1000
)

var (
	seedUsers        int
	seedPostsPerUser int
	seedGroups       int
	seedFollows      int

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users, groups, posts and follows",
		RunE:  runSeed,
	}
)

func runSeed(cmd *cobra.Command, args []string) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := database.Migrate(db); err != nil {
		return err
	}
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := make([]model.User, seedUsers)
	for i := range users {
		id := uuid.New().String()
		users[i] = model.User{
			ID:        id,
			Username:  "user_" + id[:8],
			Email:     id[:8] + "@example.com",
			Password:  string(hash),
			FirstName: fmt.Sprintf("User %d", i+1),
		}
	}
	if err := db.CreateInBatches(&users, seedBatchSize).Error; err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	groups := make([]model.Group, seedGroups)
	for i := range groups {
		groups[i] = model.Group{
			ID:          uuid.New().String(),
			Title:       fmt.Sprintf("Group %d", i+1),
			Slug:        fmt.Sprintf("group-%d-%s", i+1, uuid.New().String()[:4]),
			Description: "Demo group",
		}
	}
	if err := db.CreateInBatches(&groups, seedBatchSize).Error; err != nil {
		return fmt.Errorf("seed groups: %w", err)
	}

	posts := make([]model.Post, 0, seedUsers*seedPostsPerUser)
	now := time.Now()
	for _, u := range users {
		for j := 0; j < seedPostsPerUser; j++ {
			p := model.Post{
				ID:        uuid.New().String(),
				Text:      fmt.Sprintf("Post %d by %s", j+1, u.Username),
				AuthorID:  u.ID,
				CreatedAt: now.Add(-time.Duration(rnd.Intn(30*24*3600)) * time.Second),
			}
			if len(groups) > 0 && rnd.Intn(2) == 0 {
				gid := groups[rnd.Intn(len(groups))].ID
				p.GroupID = &gid
			}
			posts = append(posts, p)
		}
	}
	if err := db.Omit("Author", "Group").CreateInBatches(&posts, seedBatchSize).Error; err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	follows := repository.NewFollowRepository(db)
	edges := 0
	for _, u := range users {
		for k := 0; k < seedFollows && len(users) > 1; k++ {
			target := users[rnd.Intn(len(users))]
			if target.ID == u.ID {
				continue
			}
			if err := follows.Create(ctx, u.ID, target.ID); err != nil {
				return fmt.Errorf("seed follows: %w", err)
			}
			edges++
		}
	}

	logger.Info("seed finished",
		zap.Int("users", len(users)),
		zap.Int("groups", len(groups)),
		zap.Int("posts", len(posts)),
		zap.Int("follow_attempts", edges),
		zap.Duration("took", time.Since(start)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users (password %q), %d groups, %d posts\n", len(users), seedPassword, len(groups), len(posts))
	return nil
}
