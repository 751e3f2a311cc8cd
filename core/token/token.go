package token

import (
	"crypto/sha256"
	"time"
)

const (
	ScopeActivation = "activation"
	ScopeRecovery   = "recovery"
)

// Mailer delivers a freshly generated token to its user.
type Mailer interface {
	SendToken(scope string, token string, to string) error
}

type Token struct {
	Hash   []byte    `db:"token_hash"`
	UserID string    `db:"user_id"`
	Scope  string    `db:"scope"`
	Expiry time.Time `db:"expiry"`
}

type TokenNew struct {
	Email string `json:"email" validate:"required,email"`
	Scope string `json:"scope" validate:"required,oneof=activation recovery"`
}

type Activation struct {
	Token string `json:"token" validate:"required,len=26"`
}

type Recovery struct {
	Token           string `json:"token" validate:"required,len=26"`
	Password        string `json:"password" validate:"required,gte=8,lte=50"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Hash derives the stored digest from a plaintext token. Only the digest
// ever touches the database.
func Hash(plaintext string) []byte {
	h := sha256.Sum256([]byte(plaintext))
	return h[:]
}
