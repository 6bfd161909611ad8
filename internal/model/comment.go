package model

import "time"

// Comment 评论；帖子删除时级联删除，创建后不可修改
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `gorm:"type:varchar(36);not null;index:idx_comment_post_created,priority:1"`
	Post      Post      `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID  string    `gorm:"type:varchar(36);not null"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_comment_post_created,priority:2"`
}

func (Comment) TableName() string { return "comments" }
