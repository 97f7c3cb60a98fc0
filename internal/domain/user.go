package domain

import "github.com/google/uuid"

// User is the profile of an authenticated user as consumed by the pages
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

// DisplayName returns the first name, or "User" when the profile has none
func (u *User) DisplayName() string {
	if u == nil || u.FirstName == "" {
		return "User"
	}
	return u.FirstName
}
