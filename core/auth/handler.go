package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/core/claims"
	"github.com/avelic/academy/core/user"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/random"
	"github.com/avelic/academy/validate"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const oauthStateKey = "oauth_state"

func HandleSignup(db *sqlx.DB, session *scs.SessionManager, activationRequired bool) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var signup user.UserSignup
		if err := web.Decode(w, r, &signup); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(signup); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(signup.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		usr := user.User{
			ID:           validate.GenerateID(),
			Name:         signup.Name,
			Email:        signup.Email,
			Role:         claims.RoleUser,
			Active:       !activationRequired,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, usr); err != nil {
			if errors.Is(err, database.ErrDBDuplicatedEntry) {
				err := errors.New("email already in use")
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return weberr.Unavailable(err)
		}

		if usr.Active {
			if err := login(ctx, session, usr); err != nil {
				return err
			}
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var lg user.UserLogin
		if err := web.Decode(w, r, &lg); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(lg); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, lg.Email)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotAuthorized(errors.New("invalid credentials"))
			}
			return weberr.Unavailable(err)
		}

		if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(lg.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("invalid credentials"))
		}

		if !usr.Active {
			err := errors.New("account is not activated yet")
			return weberr.NewError(err, err.Error(), http.StatusForbidden)
		}

		if err := login(ctx, session, usr); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleOauthLogin(session *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := provs[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := random.String(32)
		session.Put(ctx, oauthStateKey, state)

		http.Redirect(w, r, prov.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := provs[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := session.PopString(ctx, oauthStateKey)
		if state == "" || state != r.URL.Query().Get("state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := prov.Config.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return fmt.Errorf("exchanging oauth code: %w", err)
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("oauth token without id_token"))
		}

		verifier := prov.OIDC.Verifier(&oidc.Config{ClientID: prov.Config.ClientID})
		idt, err := verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id_token: %w", err))
		}

		var profile struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := idt.Claims(&profile); err != nil {
			return fmt.Errorf("extracting id_token claims: %w", err)
		}

		usr, err := user.FetchByEmail(ctx, db, profile.Email)
		if errors.Is(err, database.ErrDBNotFound) {
			now := time.Now().UTC()
			usr = user.User{
				ID:           validate.GenerateID(),
				Name:         profile.Name,
				Email:        profile.Email,
				Role:         claims.RoleUser,
				Active:       true,
				PasswordHash: []byte{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			err = user.Create(ctx, db, usr)
		}
		if err != nil {
			return weberr.Unavailable(err)
		}

		if err := login(ctx, session, usr); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
		return nil
	}
}

func login(ctx context.Context, session *scs.SessionManager, usr user.User) error {
	if err := session.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	session.Put(ctx, userIDKey, usr.ID)
	session.Put(ctx, userRoleKey, usr.Role)
	return nil
}
