package domain

import "time"

type UserRole string

const (
	UserRoleAdmin   UserRole = "ADMIN"
	UserRoleStudent UserRole = "STUDENT"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleStudent
}

type User struct {
	ID           int32     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedOn    time.Time `json:"createdOn"`
	UpdatedOn    time.Time `json:"updatedOn"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
