package chapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/core/attachment"
	"github.com/avelic/academy/core/claims"
	"github.com/avelic/academy/core/course"
	"github.com/avelic/academy/core/progress"
	"github.com/avelic/academy/core/purchase"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/validate"
	"github.com/avelic/academy/video"
	"github.com/jmoiron/sqlx"
)

func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}

		chapters, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		// Drafts are the owner's business only.
		if !claims.IsUser(ctx, crs.OwnerID) {
			published := chapters[:0]
			for _, c := range chapters {
				if c.Published {
					published = append(published, c)
				}
			}
			chapters = published
		}

		return web.Respond(ctx, w, chapters, http.StatusOK)
	}
}

// HandleCreate appends a chapter at the end of the course. The position is
// computed under a lock on the course row so two concurrent appends can't
// land on the same slot.
func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var cn ChapterNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var ch Chapter
		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			crs, err := course.Lock(ctx, tx, courseID)
			if err != nil {
				return err
			}

			if crs.OwnerID != clm.UserID {
				return weberr.NotAuthorized(errors.New("caller does not own the course"))
			}

			max, err := MaxPosition(ctx, tx, courseID)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			ch = Chapter{
				ID:        validate.GenerateID(),
				CourseID:  courseID,
				Title:     cn.Title,
				Position:  max + 1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return Create(ctx, tx, ch)
		})
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, ch, http.StatusCreated)
	}
}

// HandleReorder applies a bulk position update as one atomic unit. The
// submitted moves, applied to the full current chapter set, must leave
// every position unique; otherwise nothing is written.
func HandleReorder(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var in struct {
			List []Move `json:"list" validate:"required,dive"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			crs, err := course.Lock(ctx, tx, courseID)
			if err != nil {
				return err
			}

			if crs.OwnerID != clm.UserID {
				return weberr.NotAuthorized(errors.New("caller does not own the course"))
			}

			chapters, err := FetchByCourse(ctx, tx, courseID)
			if err != nil {
				return err
			}

			final, err := Reordered(chapters, in.List)
			if err != nil {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest,
					weberr.WithFields(map[string]interface{}{
						"course_id": courseID,
					}))
			}

			for _, c := range chapters {
				if pos := final[c.ID]; pos != c.Position {
					if err := UpdatePosition(ctx, tx, c.ID, pos); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// ChapterView is the learner's read of a chapter. Playback and attachments
// are withheld until the chapter is free or the course purchased.
type ChapterView struct {
	Chapter     Chapter                 `json:"chapter"`
	PlaybackID  *string                 `json:"playbackId"`
	NextChapter *Chapter                `json:"nextChapter"`
	Attachments []attachment.Attachment `json:"attachments"`
	Progress    *progress.Progress      `json:"userProgress"`
	Purchased   bool                    `json:"purchased"`
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crs, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}

		owner := crs.OwnerID == clm.UserID
		if ch.CourseID != courseID || (!owner && (!crs.Published || !ch.Published)) {
			return weberr.NotFound(errors.New("chapter is not published"))
		}

		purchased, err := purchase.Exists(ctx, db, clm.UserID, courseID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		view := ChapterView{
			Chapter:     ch,
			Attachments: []attachment.Attachment{},
			Purchased:   purchased,
		}

		if purchased || owner {
			atts, err := attachment.FetchByCourse(ctx, db, courseID)
			if err != nil {
				return weberr.Unavailable(err)
			}
			view.Attachments = atts
		}

		if ch.Free || purchased || owner {
			asset, err := FetchAsset(ctx, db, chapterID)
			switch {
			case err == nil:
				view.PlaybackID = &asset.PlaybackID
			case !errors.Is(err, database.ErrDBNotFound):
				return weberr.Unavailable(err)
			}

			next, err := FetchNextPublished(ctx, db, courseID, ch.Position)
			switch {
			case err == nil:
				view.NextChapter = &next
			case !errors.Is(err, database.ErrDBNotFound):
				return weberr.Unavailable(err)
			}
		}

		prg, err := progress.Fetch(ctx, db, clm.UserID, chapterID)
		switch {
		case err == nil:
			view.Progress = &prg
		case !errors.Is(err, database.ErrDBNotFound):
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, view, http.StatusOK)
	}
}

// HandleUpdate edits chapter fields. A new video URL replaces the provider
// asset: the fresh asset is created first and the old one released only
// after the local rows swap, so a failure never leaves the chapter pointing
// at a released asset.
func HandleUpdate(db *sqlx.DB, vp video.Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		var cu ChapterUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}
		if ch.CourseID != courseID {
			return weberr.NotFound(errors.New("chapter does not belong to the course"))
		}

		if cu.Title != nil {
			ch.Title = *cu.Title
		}
		if cu.Description != nil {
			ch.Description = cu.Description
		}
		if cu.Free != nil {
			ch.Free = *cu.Free
		}

		var newAsset *Asset
		var oldAssetID string
		if cu.VideoURL != nil {
			old, err := FetchAsset(ctx, db, chapterID)
			switch {
			case err == nil:
				oldAssetID = old.AssetID
			case !errors.Is(err, database.ErrDBNotFound):
				return weberr.Unavailable(err)
			}

			created, err := vp.CreateAsset(ctx, *cu.VideoURL)
			if err != nil {
				return weberr.BadGateway(fmt.Errorf("creating asset: %w", err))
			}

			ch.VideoURL = cu.VideoURL
			newAsset = &Asset{
				ChapterID:  chapterID,
				AssetID:    created.ID,
				PlaybackID: created.PlaybackID,
				CreatedAt:  time.Now().UTC(),
			}
		}
		ch.UpdatedAt = time.Now().UTC()

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Update(ctx, tx, ch); err != nil {
				return err
			}
			if newAsset != nil {
				if err := DeleteAsset(ctx, tx, chapterID); err != nil {
					return err
				}
				return CreateAsset(ctx, tx, *newAsset)
			}
			return nil
		})
		if err != nil {
			return weberr.Unavailable(err)
		}

		// The replaced asset is released only once the swap is committed.
		if oldAssetID != "" {
			if err := vp.DeleteAsset(ctx, oldAssetID); err != nil && !errors.Is(err, video.ErrAssetNotFound) {
				return weberr.BadGateway(fmt.Errorf("releasing asset[%s]: %w", oldAssetID, err))
			}
		}

		return web.Respond(ctx, w, ch, http.StatusOK)
	}
}

func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}
		if ch.CourseID != courseID {
			return weberr.NotFound(errors.New("chapter does not belong to the course"))
		}

		if !ch.CanPublish() {
			err := errors.New("chapter is missing required fields")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := FetchAsset(ctx, db, chapterID); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				err := errors.New("chapter has no video asset")
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return weberr.Unavailable(err)
		}

		if err := SetPublished(ctx, db, chapterID, true); err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleUnpublish hides the chapter and, in the same transaction, demotes
// the course if that was its last published chapter.
func HandleUnpublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}
		if ch.CourseID != courseID {
			return weberr.NotFound(errors.New("chapter does not belong to the course"))
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := SetPublished(ctx, tx, chapterID, false); err != nil {
				return err
			}
			return course.DemoteIfOrphaned(ctx, tx, courseID)
		})
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleDelete releases the chapter's provider asset, removes the chapter
// and runs the same course demotion check as unpublish.
func HandleDelete(db *sqlx.DB, vp video.Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}
		if ch.CourseID != courseID {
			return weberr.NotFound(errors.New("chapter does not belong to the course"))
		}

		asset, err := FetchAsset(ctx, db, chapterID)
		switch {
		case err == nil:
			if err := vp.DeleteAsset(ctx, asset.AssetID); err != nil && !errors.Is(err, video.ErrAssetNotFound) {
				return weberr.BadGateway(fmt.Errorf("releasing asset[%s]: %w", asset.AssetID, err))
			}
		case !errors.Is(err, database.ErrDBNotFound):
			return weberr.Unavailable(err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Delete(ctx, tx, chapterID); err != nil {
				return err
			}
			return course.DemoteIfOrphaned(ctx, tx, courseID)
		})
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
