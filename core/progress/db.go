package progress

import (
	"context"
	"fmt"

	"github.com/avelic/academy/database"
	"github.com/jmoiron/sqlx"
)

// Upsert writes the learner's completion flag, creating the row on first
// interaction. Rows are never duplicated or deleted.
func Upsert(ctx context.Context, db sqlx.ExtContext, p Progress) error {
	const q = `
	INSERT INTO users_progress (user_id, chapter_id, completed, created_at, updated_at)
	VALUES (:user_id, :chapter_id, :completed, :created_at, :updated_at)
	ON CONFLICT (user_id, chapter_id) DO UPDATE SET
		completed = :completed,
		updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("upserting progress of user[%s] chapter[%s]: %w", p.UserID, p.ChapterID, database.WrapError(err))
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, chapterID string) (Progress, error) {
	in := struct {
		UserID    string `db:"user_id"`
		ChapterID string `db:"chapter_id"`
	}{UserID: userID, ChapterID: chapterID}

	const q = `SELECT * FROM users_progress WHERE user_id = :user_id AND chapter_id = :chapter_id`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return Progress{}, fmt.Errorf("selecting progress of user[%s] chapter[%s]: %w", userID, chapterID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Progress{}, database.ErrDBNotFound
	}

	var p Progress
	if err := rows.StructScan(&p); err != nil {
		return Progress{}, fmt.Errorf("scanning progress: %w", err)
	}
	return p, nil
}

func countPublished(ctx context.Context, db sqlx.ExtContext, courseID string) (int, error) {
	in := struct {
		CourseID string `db:"course_id"`
	}{CourseID: courseID}

	const q = `SELECT COUNT(*) AS n FROM chapters WHERE course_id = :course_id AND published`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return 0, fmt.Errorf("counting published chapters of course[%s]: %w", courseID, err)
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

func countCompleted(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (int, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{UserID: userID, CourseID: courseID}

	const q = `
	SELECT COUNT(*) AS n FROM users_progress AS p
	JOIN chapters AS c ON c.chapter_id = p.chapter_id
	WHERE p.user_id = :user_id AND c.course_id = :course_id AND c.published AND p.completed`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, in)
	if err != nil {
		return 0, fmt.Errorf("counting completed chapters of user[%s] course[%s]: %w", userID, courseID, err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scanning completed count: %w", err)
		}
	}
	return n, nil
}

// Compute returns the learner's completion percentage over the course's
// published chapters. A course with no published chapters is 0%, guarded
// explicitly. Store failures surface as errors, never as a default.
func Compute(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (float64, error) {
	published, err := countPublished(ctx, db, courseID)
	if err != nil {
		return 0, err
	}
	if published == 0 {
		return 0, nil
	}

	completed, err := countCompleted(ctx, db, userID, courseID)
	if err != nil {
		return 0, err
	}

	return float64(completed) / float64(published) * 100, nil
}
