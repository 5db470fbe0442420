package models

import "time"

// User is an identity as stored by the users repository.
//
// PasswordHash, PasswordSalt and ResetToken never leave the service layer;
// use Public before handing a User to a caller.
type User struct {
	ID           string
	UserName     string
	Email        string
	FirstName    string
	LastName     string
	Office       string
	PhoneNumber  string
	JobTitle     string
	LinkedIn     string
	Certificates []string
	Roles        []Role

	PasswordHash []byte
	PasswordSalt []byte
	// ResetToken is the last issued, not yet consumed password reset token.
	// Empty when no reset is outstanding.
	ResetToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public returns a copy of u without credential material.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = nil
	c.PasswordSalt = nil
	c.ResetToken = ""
	c.Certificates = append([]string(nil), u.Certificates...)
	c.Roles = append([]Role(nil), u.Roles...)
	return &c
}

// HasAnyRole reports whether u holds at least one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	return HasAnyRole(u.Roles, roles...)
}

// PublicUsers maps Public over users.
func PublicUsers(users []*User) []*User {
	out := make([]*User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
