package course

import (
	"context"
	"fmt"
	"time"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, course Course) error {
	const q = `
	INSERT INTO courses (course_id, owner_id, title, description, image_url, price, category_id, published, created_at, updated_at)
	VALUES (:course_id, :owner_id, :title, :description, :image_url, :price, :category_id, :published, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, course); err != nil {
		return fmt.Errorf("inserting course: %w", database.WrapError(err))
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	in := struct {
		ID string `db:"course_id"`
	}{ID: id}

	const q = `SELECT * FROM courses WHERE course_id = :course_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Course{}, database.ErrDBNotFound
	}

	var c Course
	if err := rows.StructScan(&c); err != nil {
		return Course{}, fmt.Errorf("scanning course[%s]: %w", id, err)
	}
	return c, nil
}

// Lock fetches a course taking a row lock for the rest of the transaction.
// Append and reorder serialize on it so position assignment can't race.
func Lock(ctx context.Context, tx sqlx.ExtContext, id string) (Course, error) {
	in := struct {
		ID string `db:"course_id"`
	}{ID: id}

	const q = `SELECT * FROM courses WHERE course_id = :course_id FOR UPDATE`

	rows, err := sqlx.NamedQueryContext(ctx, tx, q, in)
	if err != nil {
		return Course{}, fmt.Errorf("locking course[%s]: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Course{}, database.ErrDBNotFound
	}

	var c Course
	if err := rows.StructScan(&c); err != nil {
		return Course{}, fmt.Errorf("scanning course[%s]: %w", id, err)
	}
	return c, nil
}

// FetchPublished lists published courses, optionally filtered by a title
// substring and a category.
func FetchPublished(ctx context.Context, db sqlx.ExtContext, title string, categoryID string) ([]Course, error) {
	in := struct {
		Title      string `db:"title"`
		CategoryID string `db:"category_id"`
	}{Title: title, CategoryID: categoryID}

	q := `SELECT * FROM courses WHERE published`
	if title != "" {
		q += ` AND title ILIKE '%' || :title || '%'`
	}
	if categoryID != "" {
		q += ` AND category_id = :category_id`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting published courses: %w", err)
	}
	defer rows.Close()

	courses := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.StructScan(&c); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func FetchOwned(ctx context.Context, db sqlx.ExtContext, ownerID string) ([]Course, error) {
	in := struct {
		OwnerID string `db:"owner_id"`
	}{OwnerID: ownerID}

	const q = `SELECT * FROM courses WHERE owner_id = :owner_id ORDER BY created_at DESC`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting courses of owner[%s]: %w", ownerID, err)
	}
	defer rows.Close()

	courses := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.StructScan(&c); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, course Course) error {
	const q = `
	UPDATE courses SET
		title = :title,
		description = :description,
		image_url = :image_url,
		price = :price,
		category_id = :category_id,
		updated_at = :updated_at,
		version = version + 1
	WHERE course_id = :course_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, course); err != nil {
		return fmt.Errorf("updating course[%s]: %w", course.ID, err)
	}
	return nil
}

func SetPublished(ctx context.Context, db sqlx.ExtContext, id string, published bool) error {
	in := struct {
		ID        string    `db:"course_id"`
		Published bool      `db:"published"`
		UpdatedAt time.Time `db:"updated_at"`
	}{ID: id, Published: published, UpdatedAt: time.Now().UTC()}

	const q = `
	UPDATE courses SET
		published = :published,
		updated_at = :updated_at,
		version = version + 1
	WHERE course_id = :course_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating course[%s] publication: %w", id, err)
	}
	return nil
}

func CountPublishedChapters(ctx context.Context, db sqlx.ExtContext, id string) (int, error) {
	in := struct {
		ID string `db:"course_id"`
	}{ID: id}

	const q = `SELECT COUNT(*) AS n FROM chapters WHERE course_id = :course_id AND published`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return 0, fmt.Errorf("counting published chapters of course[%s]: %w", id, err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scanning chapter count: %w", err)
		}
	}
	return n, nil
}

// DemoteIfOrphaned force-unpublishes the course when it no longer has a
// published chapter. Every mutation that can reduce the published-chapter
// count must run it inside the same transaction.
func DemoteIfOrphaned(ctx context.Context, tx sqlx.ExtContext, id string) error {
	n, err := CountPublishedChapters(ctx, tx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return SetPublished(ctx, tx, id, false)
}

// FetchAssetIDs lists the provider asset ids referenced by the course's
// chapters, for release before the course is deleted.
func FetchAssetIDs(ctx context.Context, db sqlx.ExtContext, id string) ([]string, error) {
	in := struct {
		ID string `db:"course_id"`
	}{ID: id}

	const q = `
	SELECT a.asset_id FROM chapter_assets AS a
	JOIN chapters AS c ON c.chapter_id = a.chapter_id
	WHERE c.course_id = :course_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting asset ids of course[%s]: %w", id, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var aid string
		if err := rows.Scan(&aid); err != nil {
			return nil, fmt.Errorf("scanning asset id: %w", err)
		}
		ids = append(ids, aid)
	}
	return ids, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"course_id"`
	}{ID: id}

	const q = `DELETE FROM courses WHERE course_id = :course_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting course[%s]: %w", id, err)
	}
	return nil
}
