package model

import "time"

// Group 社区；删除社区时帖子的 group_id 置空
type Group struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Title       string `gorm:"type:varchar(200);not null"`
	Slug        string `gorm:"type:varchar(200);uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (Group) TableName() string { return "groups" }
