package category

import (
	"context"
	"fmt"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Category, error) {
	const q = `SELECT * FROM categories ORDER BY name`

	var cats []Category
	if err := sqlx.SelectContext(ctx, db, &cats, q); err != nil {
		return nil, fmt.Errorf("selecting categories: %w", err)
	}
	return cats, nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Category, error) {
	in := struct {
		ID string `db:"category_id"`
	}{ID: id}

	const q = `SELECT * FROM categories WHERE category_id = :category_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Category{}, fmt.Errorf("selecting category[%s]: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Category{}, database.ErrDBNotFound
	}

	var cat Category
	if err := rows.StructScan(&cat); err != nil {
		return Category{}, fmt.Errorf("scanning category[%s]: %w", id, err)
	}
	return cat, nil
}
