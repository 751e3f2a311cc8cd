package chapter

import (
	"context"
	"fmt"
	"time"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, chapter Chapter) error {
	const q = `
	INSERT INTO chapters (chapter_id, course_id, title, description, video_url, position, free, published, created_at, updated_at)
	VALUES (:chapter_id, :course_id, :title, :description, :video_url, :position, :free, :published, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, chapter); err != nil {
		return fmt.Errorf("inserting chapter: %w", database.WrapError(err))
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Chapter, error) {
	in := struct {
		ID string `db:"chapter_id"`
	}{ID: id}

	const q = `SELECT * FROM chapters WHERE chapter_id = :chapter_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Chapter{}, fmt.Errorf("selecting chapter[%s]: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Chapter{}, database.ErrDBNotFound
	}

	var c Chapter
	if err := rows.StructScan(&c); err != nil {
		return Chapter{}, fmt.Errorf("scanning chapter[%s]: %w", id, err)
	}
	return c, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Chapter, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT * FROM chapters WHERE course_id = :course_id ORDER BY position`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return nil, fmt.Errorf("selecting chapters of course[%s]: %w", courseID, err)
	}
	defer rows.Close()

	chapters := []Chapter{}
	for rows.Next() {
		var c Chapter
		if err := rows.StructScan(&c); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	return chapters, nil
}

// FetchNextPublished returns the first published chapter after the given
// position, if any.
func FetchNextPublished(ctx context.Context, db sqlx.ExtContext, courseID string, position int) (Chapter, error) {
	in := struct {
		CourseID string `db:"course_id"`
		Position int    `db:"position"`
	}{CourseID: courseID, Position: position}

	const q = `
	SELECT * FROM chapters
	WHERE course_id = :course_id AND published AND position > :position
	ORDER BY position
	LIMIT 1`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Chapter{}, fmt.Errorf("selecting next chapter of course[%s]: %w", courseID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Chapter{}, database.ErrDBNotFound
	}

	var c Chapter
	if err := rows.StructScan(&c); err != nil {
		return Chapter{}, fmt.Errorf("scanning next chapter: %w", err)
	}
	return c, nil
}

// MaxPosition returns the highest position in the course, 0 when the course
// has no chapters. Call it with the parent course row locked.
func MaxPosition(ctx context.Context, tx sqlx.ExtContext, courseID string) (int, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT COALESCE(MAX(position), 0) AS max FROM chapters WHERE course_id = :course_id`

	rows, err := sqlx.NamedQueryContext(ctx, tx, q, in)
	if err != nil {
		return 0, fmt.Errorf("selecting max position of course[%s]: %w", courseID, err)
	}
	defer rows.Close()

	var max int
	if rows.Next() {
		if err := rows.Scan(&max); err != nil {
			return 0, fmt.Errorf("scanning max position: %w", err)
		}
	}
	return max, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, chapter Chapter) error {
	const q = `
	UPDATE chapters SET
		title = :title,
		description = :description,
		video_url = :video_url,
		free = :free,
		updated_at = :updated_at,
		version = version + 1
	WHERE chapter_id = :chapter_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, chapter); err != nil {
		return fmt.Errorf("updating chapter[%s]: %w", chapter.ID, err)
	}
	return nil
}

func UpdatePosition(ctx context.Context, tx sqlx.ExtContext, id string, position int) error {
	in := struct {
		ID        string    `db:"chapter_id"`
		Position  int       `db:"position"`
		UpdatedAt time.Time `db:"updated_at"`
	}{ID: id, Position: position, UpdatedAt: time.Now().UTC()}

	const q = `
	UPDATE chapters SET
		position = :position,
		updated_at = :updated_at,
		version = version + 1
	WHERE chapter_id = :chapter_id`

	if _, err := sqlx.NamedExecContext(ctx, tx, q, in); err != nil {
		return fmt.Errorf("updating chapter[%s] position: %w", id, err)
	}
	return nil
}

func SetPublished(ctx context.Context, db sqlx.ExtContext, id string, published bool) error {
	in := struct {
		ID        string    `db:"chapter_id"`
		Published bool      `db:"published"`
		UpdatedAt time.Time `db:"updated_at"`
	}{ID: id, Published: published, UpdatedAt: time.Now().UTC()}

	const q = `
	UPDATE chapters SET
		published = :published,
		updated_at = :updated_at,
		version = version + 1
	WHERE chapter_id = :chapter_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("updating chapter[%s] publication: %w", id, err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	in := struct {
		ID string `db:"chapter_id"`
	}{ID: id}

	const q = `DELETE FROM chapters WHERE chapter_id = :chapter_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting chapter[%s]: %w", id, err)
	}
	return nil
}

func CreateAsset(ctx context.Context, db sqlx.ExtContext, asset Asset) error {
	const q = `
	INSERT INTO chapter_assets (chapter_id, asset_id, playback_id, created_at)
	VALUES (:chapter_id, :asset_id, :playback_id, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, asset); err != nil {
		return fmt.Errorf("inserting asset of chapter[%s]: %w", asset.ChapterID, database.WrapError(err))
	}
	return nil
}

func FetchAsset(ctx context.Context, db sqlx.ExtContext, chapterID string) (Asset, error) {
	in := struct {
		ChapterID string `db:"chapter_id"`
	}{ChapterID: chapterID}

	const q = `SELECT * FROM chapter_assets WHERE chapter_id = :chapter_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Asset{}, fmt.Errorf("selecting asset of chapter[%s]: %w", chapterID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Asset{}, database.ErrDBNotFound
	}

	var a Asset
	if err := rows.StructScan(&a); err != nil {
		return Asset{}, fmt.Errorf("scanning asset of chapter[%s]: %w", chapterID, err)
	}
	return a, nil
}

func DeleteAsset(ctx context.Context, db sqlx.ExtContext, chapterID string) error {
	in := struct {
		ChapterID string `db:"chapter_id"`
	}{ChapterID: chapterID}

	const q = `DELETE FROM chapter_assets WHERE chapter_id = :chapter_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, in); err != nil {
		return fmt.Errorf("deleting asset of chapter[%s]: %w", chapterID, err)
	}
	return nil
}
