package models

import "time"

// UserView is the read-optimised projection of a user.
// It never exposes PasswordHash or the verification token.
type UserView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Mail        string    `json:"mail"`
	Strategy    string    `json:"strategy"`
	Verified    bool      `json:"verified"`
	Residence   string    `json:"residence"`
	Description string    `json:"description"`
	Birthdate   string    `json:"birthdate"`
	Picture     Picture   `json:"picture"`
	CreatedAt   time.Time `json:"createdTimestamp"`
	UpdatedAt   time.Time `json:"updatedTimestamp"`
}
