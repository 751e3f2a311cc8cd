package attachment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/core/course"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/validate"
	"github.com/jmoiron/sqlx"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var an AttachmentNew
		if err := web.Decode(w, r, &an); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(an); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		// Display name falls out of the hosted file's URL.
		name := an.URL
		if i := strings.LastIndex(an.URL, "/"); i >= 0 {
			name = an.URL[i+1:]
		}

		now := time.Now().UTC()
		att := Attachment{
			ID:        validate.GenerateID(),
			CourseID:  courseID,
			Name:      name,
			URL:       an.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, att); err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, att, http.StatusCreated)
	}
}

func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		atts, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, atts, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		attachmentID := web.Param(r, "attachment_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(attachmentID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		att, err := Fetch(ctx, db, attachmentID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}
		if att.CourseID != courseID {
			return weberr.NotFound(errors.New("attachment does not belong to the course"))
		}

		if err := Delete(ctx, db, attachmentID); err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
