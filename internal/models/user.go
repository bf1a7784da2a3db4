package models

import "time"

type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleTrainer UserRole = "trainer"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;type:varchar(255)"`
	Name      string    `json:"name" gorm:"not null;type:varchar(255)"`
	Password  string    `json:"-" gorm:"type:varchar(255)"`
	Role      UserRole  `json:"role" gorm:"not null;type:varchar(20);default:user"`
	IsActive  bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime;not null"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// IsTrainer reports whether the user may create workshops
func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

// DisplayName is the name shown to other call participants.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
