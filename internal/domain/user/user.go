package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already taken")
)

// Gender and Role are persisted as their string form.

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Gender       Gender    `json:"gender"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	IPAddress    string    `json:"ipAddress"`
	Country      string    `json:"country"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicView is the representation safe to return to any caller.
// An explicit struct rather than a filtered map, so the hash cannot
// leak through a forgotten key.
type PublicView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Gender    Gender    `json:"gender"`
	IPAddress string    `json:"ipAddress"`
	Country   string    `json:"country"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicView {
	return PublicView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Gender:    u.Gender,
		IPAddress: u.IPAddress,
		Country:   u.Country,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
