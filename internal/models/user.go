package models

import (
	"strings"
	"time"

	"github.com/baharkarakas/shop-backend/internal/apperr"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultAvatar is used for avatar and banner whenever a profile leaves them empty.
const DefaultAvatar = "/static/profile.jpg"

type Mobile struct {
	Value       string `json:"value"`
	CountryCode string `json:"countryCode,omitempty"`
	DialCode    string `json:"dialCode,omitempty"`
	Country     string `json:"country,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Fullname     string    `json:"fullname"`
	Avatar       string    `json:"avatar"`
	Banner       string    `json:"banner"`
	Address      string    `json:"address"`
	Mobile       Mobile    `json:"mobile"`
	DateJoined   time.Time `json:"dateJoined"`
}

// PublicUser is what leaves the process: everything but the credential.
type PublicUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Fullname   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	Banner     string    `json:"banner"`
	Address    string    `json:"address"`
	Mobile     Mobile    `json:"mobile"`
	DateJoined time.Time `json:"dateJoined"`
}

// Profile is the public user view with the current basket merged in.
type Profile struct {
	PublicUser
	Basket []LineItem `json:"basket"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		Fullname:   u.Fullname,
		Avatar:     u.Avatar,
		Banner:     u.Banner,
		Address:    u.Address,
		Mobile:     u.Mobile,
		DateJoined: u.DateJoined,
	}
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// ProfileUpdate is a full replace of the editable profile fields.
type ProfileUpdate struct {
	Fullname string  `json:"fullname"`
	Avatar   string  `json:"avatar"`
	Banner   string  `json:"banner"`
	Address  string  `json:"address"`
	Mobile   *Mobile `json:"mobile"`
}

// Normalized applies the full-replace defaults: missing text becomes empty,
// missing images become DefaultAvatar, a missing mobile becomes the zero value.
func (p ProfileUpdate) Normalized() ProfileUpdate {
	out := ProfileUpdate{
		Fullname: p.Fullname,
		Avatar:   p.Avatar,
		Banner:   p.Banner,
		Address:  p.Address,
		Mobile:   &Mobile{},
	}
	if out.Avatar == "" {
		out.Avatar = DefaultAvatar
	}
	if out.Banner == "" {
		out.Banner = DefaultAvatar
	}
	if p.Mobile != nil {
		m := *p.Mobile
		out.Mobile = &m
	}
	return out
}

// ApplyTo writes the normalized update onto u.
func (p ProfileUpdate) ApplyTo(u *User) {
	n := p.Normalized()
	u.Fullname = n.Fullname
	u.Avatar = n.Avatar
	u.Banner = n.Banner
	u.Address = n.Address
	u.Mobile = *n.Mobile
}

// SignupInput is what callers provide to create an account.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

func (in *SignupInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return apperr.Invalid("Email and password required")
	}
	if !strings.Contains(in.Email, "@") {
		return apperr.Invalid("invalid email")
	}
	return nil
}

// NewUser builds the row stored at signup. Fullname falls back to "User".
func NewUser(in SignupInput, hash string, role Role, now time.Time) User {
	name := strings.TrimSpace(in.Fullname)
	if name == "" {
		name = "User"
	}
	return User{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Fullname:     name,
		Avatar:       DefaultAvatar,
		Banner:       DefaultAvatar,
		DateJoined:   now.UTC(),
	}
}
