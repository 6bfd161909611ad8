package auth

import "github.com/d60-Lab/gin-blog/internal/model"

// Viewer 发起请求的身份；User 为 nil 表示匿名访问
type Viewer struct {
	User *model.User
}

// Anonymous 匿名访问者
func Anonymous() Viewer { return Viewer{} }

// As 以指定用户身份访问
func As(u *model.User) Viewer { return Viewer{User: u} }

func (v Viewer) IsAuthenticated() bool { return v.User != nil && v.User.ID != "" }

// Is 是否为指定用户本人
func (v Viewer) Is(userID string) bool { return v.IsAuthenticated() && v.User.ID == userID }

// ID 匿名时返回空串
func (v Viewer) ID() string {
	if !v.IsAuthenticated() {
		return ""
	}
	return v.User.ID
}
