package user

import (
	"context"
	"fmt"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users (user_id, name, email, role, active, password_hash, created_at, updated_at)
	VALUES (:user_id, :name, :email, :role, :active, :password_hash, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", database.WrapError(err))
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	in := struct {
		ID string `db:"user_id"`
	}{ID: id}

	const q = `SELECT * FROM users WHERE user_id = :user_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return User{}, database.ErrDBNotFound
	}

	var usr User
	if err := rows.StructScan(&usr); err != nil {
		return User{}, fmt.Errorf("scanning user[%s]: %w", id, err)
	}
	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	in := struct {
		Email string `db:"email"`
	}{Email: email}

	const q = `SELECT * FROM users WHERE email = :email`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return User{}, database.ErrDBNotFound
	}

	var usr User
	if err := rows.StructScan(&usr); err != nil {
		return User{}, fmt.Errorf("scanning user by email: %w", err)
	}
	return usr, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, up StatusUp) error {
	const q = `
	UPDATE users SET
		active = :active,
		updated_at = :updated_at,
		version = version + 1
	WHERE user_id = :user_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, up); err != nil {
		return fmt.Errorf("updating user[%s] status: %w", up.ID, err)
	}
	return nil
}

func UpdatePassword(ctx context.Context, db sqlx.ExtContext, up PasswordUp) error {
	const q = `
	UPDATE users SET
		password_hash = :password_hash,
		updated_at = :updated_at,
		version = version + 1
	WHERE user_id = :user_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, up); err != nil {
		return fmt.Errorf("updating user[%s] password: %w", up.ID, err)
	}
	return nil
}
