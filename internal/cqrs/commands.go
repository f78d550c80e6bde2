package cqrs

// CreateUserCommand carries a validated account draft into provisioning.
// Optional profile fields default to the empty string in the stored record.
type CreateUserCommand struct {
	Name        string
	Surname     string
	Mail        string
	Password    string
	Residence   string
	Description string
	Birthdate   string
}

// BulkDraft is the minimal per-item record of a bulk provisioning batch.
// Passwords are generated, not caller-supplied.
type BulkDraft struct {
	Name string
	Mail string
}

type UpdateUserCommand struct {
	UserID      string
	Rev         string
	Name        string
	Surname     string
	Residence   string
	Description string
	Birthdate   string
}

type UpdatePasswordCommand struct {
	UserID   string
	Password string
}

type DeleteUserCommand struct {
	UserID string
}
