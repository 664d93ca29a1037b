package domain

import "strings"

// Role distinguishes learners from the mentors they invite
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
)

// User is an account known to the service. Users are keyed by email.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	StudentEmail string `json:"student_email,omitempty"` // mentors only
	PasswordHash string `json:"-"`
}

// NormalizeEmail lower-cases and trims an email so it can be used as a key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName derives a default name from the local part of an email
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// SubjectEmail returns the student whose data this user may read
func (u User) SubjectEmail() string {
	if u.Role == RoleMentor {
		return u.StudentEmail
	}
	return u.Email
}
