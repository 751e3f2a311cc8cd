package attachment

import (
	"context"
	"fmt"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, att Attachment) error {
	const q = `
	INSERT INTO attachments (attachment_id, course_id, name, url, created_at, updated_at)
	VALUES (:attachment_id, :course_id, :name, :url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, att); err != nil {
		return fmt.Errorf("inserting attachment: %w", database.WrapError(err))
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Attachment, error) {
	in := struct {
		ID string `db:"attachment_id"`
	}{ID: id}

	const q = `SELECT * FROM attachments WHERE attachment_id = :attachment_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Attachment{}, fmt.Errorf("selecting attachment[%s]: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Attachment{}, database.ErrDBNotFound
	}

	var att Attachment
	if err := rows.StructScan(&att); err != nil {
		return Attachment{}, fmt.Errorf("scanning attachment[%s]: %w", id, err)
	}
	return att, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Attachment, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT * FROM attachments WHERE course_id = :course_id ORDER BY created_at`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting attachments of course[%s]: %w", courseID, err)
	}
	defer rows.Close()

	atts := []Attachment{}
	for rows.Next() {
		var att Attachment
		if err := rows.StructScan(&att); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		atts = append(atts, att)
	}
	return atts, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"attachment_id"`
	}{ID: id}

	const q = `DELETE FROM attachments WHERE attachment_id = :attachment_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting attachment[%s]: %w", id, err)
	}
	return nil
}
