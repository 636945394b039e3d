package models

import "time"

// User is a participant of the innovation programme.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Email     string     `gorm:"size:255;uniqueIndex" json:"email"`
	Roles     []UserRole `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"roles"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserRole grants a workflow role to a user.
type UserRole struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_user_role,priority:1" json:"user_id"`
	Role   string `gorm:"size:32;not null;uniqueIndex:idx_user_role,priority:2;index" json:"role"`
}

// RoleNames flattens the granted roles.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Role)
	}
	return names
}

// All returns every model managed by the schema migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserRole{},
		&Submission{},
		&StageTransition{},
		&Review{},
		&PointLedgerEntry{},
		&ActivityLog{},
		&Notification{},
	}
}
