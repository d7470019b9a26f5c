package models

import "gorm.io/gorm"

type Post struct {
	gorm.Model
	UserID     uint    `gorm:"index;not null" json:"user_id"`
	Title      string  `gorm:"not null" json:"title"`
	Slug       string  `json:"slug"`
	Body       string  `json:"body"`
	ReplyCount int     `gorm:"default:0" json:"reply_count"`
	Author     User    `gorm:"foreignKey:UserID" json:"author"`
	Replies    []Reply `gorm:"constraint:OnDelete:CASCADE;" json:"replies,omitempty"`
}

type Reply struct {
	gorm.Model
	PostID uint   `gorm:"index;not null" json:"post_id"`
	UserID uint   `gorm:"index;not null" json:"user_id"`
	Body   string `gorm:"not null" json:"body"`
	Author User   `gorm:"foreignKey:UserID" json:"author"`
}
