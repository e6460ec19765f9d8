// Package models defines shared data types for the application.
package models

import "time"

// ResumeRecord is the persisted resume cursor of a channel.
// LastID is the starting message id of the last completed run.
type ResumeRecord struct {
	ChatID    int64     `json:"chat_id" gorm:"primaryKey;autoIncrement:false;column:chat_id" bson:"_id"`
	LastID    int       `json:"last_id" gorm:"column:last_id;not null" bson:"last_id"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at" bson:"updated_at"`
}

// TableName pins the table name shared with the SQL migrations.
func (ResumeRecord) TableName() string {
	return "index_resume"
}
