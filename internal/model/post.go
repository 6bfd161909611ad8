package model

import "time"

// Post 帖子；created_at 为主排序键，创建后不再修改
type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_post_created;index:idx_post_author_created,priority:2;index:idx_post_group_created,priority:2"`
	UpdatedAt time.Time
	AuthorID  string  `gorm:"type:varchar(36);not null;index:idx_post_author_created,priority:1"`
	Author    User    `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	GroupID   *string `gorm:"type:varchar(36);index:idx_post_group_created,priority:1"`
	Group     *Group  `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Image     string  `gorm:"type:varchar(255)"` // 存储相对路径，如 posts/<uuid>.gif
}

func (Post) TableName() string { return "posts" }

// Excerpt 前 15 个字符，用于后台列表与日志
func (p Post) Excerpt() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		return string(r[:15])
	}
	return p.Text
}
