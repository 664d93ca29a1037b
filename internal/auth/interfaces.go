package auth

import "context"

// Authenticator is the surface used by the daemon
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	LoginMentor(ctx context.Context, studentEmail, code string) (*LoginResult, error)
	CreateInvite(ctx context.Context, student string) (*Invite, error)
	Validate(token string) (*Claims, error)
}

var _ Authenticator = (*Service)(nil)

var (
	_ UserStore   = (*JSONStore)(nil)
	_ InviteStore = (*JSONStore)(nil)
	_ InviteStore = (*RedisInviteStore)(nil)
	_ UserStore   = (*PostgresRepository)(nil)
	_ InviteStore = (*PostgresRepository)(nil)
)
