package models

import (
	"errors"
	"time"
)

// StrategyDefault tags credential-based accounts; federated accounts carry
// the identity-provider tag instead (e.g. "google").
const StrategyDefault = "default"

// PlaceholderPictureURL is attached to every freshly created user until a
// real profile picture is uploaded.
const PlaceholderPictureURL = "https://assets.arkplatform.io/profile_placeholder_square150.png"

// Sentinel errors shared across the repository, command and handler layers.
var (
	ErrMailTaken            = errors.New("mail already exists")
	ErrNotFound             = errors.New("user not found")
	ErrRevMismatch          = errors.New("revision mismatch")
	ErrCredentialDerivation = errors.New("credential derivation failed")
	ErrUnsupportedImageType = errors.New("unsupported image type")
)

// Picture holds the stored locations of the profile image variants.
type Picture struct {
	Original  string `json:"original,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// User is the persisted account document. Rev is the optimistic-concurrency
// token regenerated by the store on every write; UUID is the registration
// correlation token used for mail verification.
type User struct {
	ID           string    `json:"id"`
	Rev          string    `json:"rev"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Mail         string    `json:"mail"`
	PasswordHash string    `json:"-"`
	Strategy     string    `json:"strategy"`
	UUID         string    `json:"-"`
	Verified     bool      `json:"verified"`
	Residence    string    `json:"residence"`
	Description  string    `json:"description"`
	Birthdate    string    `json:"birthdate"`
	Picture      Picture   `json:"picture"`
	CreatedAt    time.Time `json:"createdTimestamp"`
	UpdatedAt    time.Time `json:"updatedTimestamp"`
}
