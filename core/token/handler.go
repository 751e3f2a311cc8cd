package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/avelic/academy/api/background"
	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/core/user"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/random"
	"github.com/avelic/academy/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// HandleToken issues an activation or recovery token and mails it out.
// The response is 204 whether or not the email exists, to avoid account
// enumeration.
func HandleToken(db *sqlx.DB, mailer Mailer, timeout time.Duration, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tn TokenNew
		if err := web.Decode(w, r, &tn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, tn.Email)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return web.Respond(ctx, w, nil, http.StatusNoContent)
			}
			return weberr.Unavailable(err)
		}

		plaintext, err := random.StringSecure(26)
		if err != nil {
			return fmt.Errorf("generating token: %w", err)
		}

		tok := Token{
			Hash:   Hash(plaintext),
			UserID: usr.ID,
			Scope:  tn.Scope,
			Expiry: time.Now().UTC().Add(timeout),
		}

		if err := Create(ctx, db, tok); err != nil {
			return weberr.Unavailable(err)
		}

		bg.Add(func() error {
			return mailer.SendToken(tok.Scope, plaintext, usr.Email)
		})

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleActivation(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var act Activation
		if err := web.Decode(w, r, &act); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(act); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		tok, err := Fetch(ctx, db, Hash(act.Token), ScopeActivation)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(errors.New("invalid or expired token"))
			}
			return weberr.Unavailable(err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			up := user.StatusUp{
				ID:        tok.UserID,
				Active:    true,
				UpdatedAt: time.Now().UTC(),
			}
			if err := user.UpdateStatus(ctx, tx, up); err != nil {
				return err
			}
			return DeleteByUser(ctx, tx, tok.UserID, ScopeActivation)
		})
		if err != nil {
			return weberr.Unavailable(err)
		}

		if err := session.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleRecovery(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var rec Recovery
		if err := web.Decode(w, r, &rec); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(rec); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		tok, err := Fetch(ctx, db, Hash(rec.Token), ScopeRecovery)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(errors.New("invalid or expired token"))
			}
			return weberr.Unavailable(err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(rec.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			up := user.PasswordUp{
				ID:           tok.UserID,
				PasswordHash: hash,
				UpdatedAt:    time.Now().UTC(),
			}
			if err := user.UpdatePassword(ctx, tx, up); err != nil {
				return err
			}
			return DeleteByUser(ctx, tx, tok.UserID, ScopeRecovery)
		})
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
