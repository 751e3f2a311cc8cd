package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/core/claims"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/validate"
	"github.com/jmoiron/sqlx"
)

// HandleUpsert lets the learner flag a chapter complete or incomplete.
func HandleUpsert(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		now := time.Now().UTC()
		p := Progress{
			UserID:    clm.UserID,
			ChapterID: chapterID,
			Completed: *up.Completed,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Upsert(ctx, db, p); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

// HandleShowByCourse reports the caller's completion percentage for a
// course.
func HandleShowByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		pct, err := Compute(ctx, db, clm.UserID, courseID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		sum := Summary{CourseID: courseID, Percent: pct}
		return web.Respond(ctx, w, sum, http.StatusOK)
	}
}
