// Package model defines database models
package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey" json:"-"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	JoinDate     time.Time `gorm:"not null" json:"joinDate"`

	Uploads []Upload `gorm:"foreignKey:UserID" json:"-"`
}
