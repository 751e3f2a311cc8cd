package token

import (
	"context"
	"fmt"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, tok Token) error {
	const q = `
	INSERT INTO tokens (token_hash, user_id, scope, expiry)
	VALUES (:token_hash, :user_id, :scope, :expiry)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tok); err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// Fetch returns a live token row matching the digest and scope. Expired
// tokens are invisible to callers.
func Fetch(ctx context.Context, db sqlx.ExtContext, hash []byte, scope string) (Token, error) {
	in := struct {
		Hash  []byte `db:"token_hash"`
		Scope string `db:"scope"`
	}{Hash: hash, Scope: scope}

	const q = `
	SELECT * FROM tokens
	WHERE token_hash = :token_hash AND scope = :scope AND expiry > now() AT TIME ZONE 'utc'`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Token{}, fmt.Errorf("selecting token: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Token{}, database.ErrDBNotFound
	}

	var tok Token
	if err := rows.StructScan(&tok); err != nil {
		return Token{}, fmt.Errorf("scanning token: %w", err)
	}
	return tok, nil
}

func DeleteByUser(ctx context.Context, db sqlx.ExtContext, userID string, scope string) error {
	in := struct {
		UserID string `db:"user_id"`
		Scope  string `db:"scope"`
	}{UserID: userID, Scope: scope}

	const q = `DELETE FROM tokens WHERE user_id = :user_id AND scope = :scope`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting tokens of user[%s]: %w", userID, err)
	}
	return nil
}
