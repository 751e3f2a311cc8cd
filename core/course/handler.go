package course

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
	"github.com/avelic/academy/video"
	"github.com/jmoiron/sqlx"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		c := Course{
			ID:        validate.GenerateID(),
			OwnerID:   clm.UserID,
			Title:     cn.Title,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, c); err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := FetchForOwner(ctx, db, courseID)
		if err != nil {
			return err
		}

		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Description != nil {
			c.Description = cu.Description
		}
		if cu.ImageURL != nil {
			c.ImageURL = cu.ImageURL
		}
		if cu.Price != nil {
			c.Price = cu.Price
		}
		if cu.CategoryID != nil {
			c.CategoryID = cu.CategoryID
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}

		// Drafts are visible to their owner only.
		if !c.Published && !claims.IsUser(ctx, c.OwnerID) {
			return weberr.NotFound(errors.New("course is not published"))
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		title := r.URL.Query().Get("title")
		categoryID := r.URL.Query().Get("category_id")
		if categoryID != "" {
			if err := validate.CheckID(categoryID); err != nil {
				return weberr.BadRequest(err)
			}
		}

		courses, err := FetchPublished(ctx, db, title, categoryID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courses, err := FetchOwned(ctx, db, clm.UserID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		// The predicate is re-checked under a row lock so a racing chapter
		// unpublish can't slip a chapterless course into the published state.
		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			c, err := Lock(ctx, tx, courseID)
			if err != nil {
				return err
			}

			if c.OwnerID != clm.UserID {
				return weberr.NotAuthorized(errors.New("caller does not own the course"))
			}

			if !c.CanPublish() {
				err := errors.New("course is missing required fields")
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}

			n, err := CountPublishedChapters(ctx, tx, courseID)
			if err != nil {
				return err
			}
			if n == 0 {
				err := errors.New("course has no published chapter")
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}

			return SetPublished(ctx, tx, courseID, true)
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

func HandleUnpublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		if err := SetPublished(ctx, db, courseID, false); err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleDelete removes the course and everything it owns. Provider assets
// are released first: an orphaned remote asset beats a local row that
// points at a deleted one.
func HandleDelete(db *sqlx.DB, vp video.Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := FetchForOwner(ctx, db, courseID); err != nil {
			return err
		}

		assetIDs, err := FetchAssetIDs(ctx, db, courseID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		for _, id := range assetIDs {
			if err := vp.DeleteAsset(ctx, id); err != nil && !errors.Is(err, video.ErrAssetNotFound) {
				return weberr.BadGateway(fmt.Errorf("releasing asset[%s]: %w", id, err))
			}
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			return Delete(ctx, tx, courseID)
		})
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// FetchForOwner loads the course and enforces that the caller owns it.
// Ownership is checked before any other predicate.
func FetchForOwner(ctx context.Context, db sqlx.ExtContext, courseID string) (Course, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return Course{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	c, err := Fetch(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Course{}, weberr.NotFound(err)
		}
		return Course{}, weberr.Unavailable(err)
	}

	if c.OwnerID != clm.UserID {
		return Course{}, weberr.NotAuthorized(errors.New("caller does not own the course"))
	}
	return c, nil
}
