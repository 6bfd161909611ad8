package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid username or password")

// SignUpInput 注册表单
type SignUpInput struct {
	FirstName string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" json:"last_name" validate:"max=150"`
	Username  string `form:"username" json:"username" validate:"required,max=150,username"`
	Email     string `form:"email" json:"email" validate:"omitempty,email"`
	Password  string `form:"password1" json:"password" validate:"required,min=8"`
	Password2 string `form:"password2" json:"password2" validate:"eqfield=Password"`
}

// UserService 注册与登录校验
type UserService interface {
	SignUp(ctx context.Context, in SignUpInput) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
	cost  int
}

// NewUserService cost 为 bcrypt 代价，<=0 时使用 bcrypt.DefaultCost
func NewUserService(users repository.UserRepository, cost int) UserService {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &userService{users: users, cost: cost}
}

func (s *userService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	fields := checkStruct(in)

	if _, ok := fields["username"]; !ok {
		_, err := s.users.FindByUsername(ctx, in.Username)
		switch {
		case err == nil:
			fields["username"] = "A user with that username already exists."
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	if err := fieldsError(fields); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.Info("user signed up", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
