package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/avelic/academy/api/background"
	"github.com/avelic/academy/api/middleware"
	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/config"
	"github.com/avelic/academy/core/attachment"
	"github.com/avelic/academy/core/auth"
	"github.com/avelic/academy/core/category"
	"github.com/avelic/academy/core/chapter"
	"github.com/avelic/academy/core/course"
	"github.com/avelic/academy/core/progress"
	"github.com/avelic/academy/core/purchase"
	"github.com/avelic/academy/core/token"
	"github.com/avelic/academy/core/user"
	"github.com/avelic/academy/rate"
	"github.com/avelic/academy/video"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin         string
	Log                logrus.FieldLogger
	DB                 *sqlx.DB
	Session            *scs.SessionManager
	Mailer             token.Mailer
	TokenTimeout       time.Duration
	Background         *background.Background
	Paypal             *paypal.Client
	Stripe             *stripecl.API
	StripeCfg          config.Stripe
	Video              video.Provider
	Providers          map[string]auth.Provider
	Limiter            *rate.Limiter
	LoginRedirectURL   string
	ActivationRequired bool
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	creator := auth.Creator(cfg.Session)
	limited := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session, cfg.ActivationRequired), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodPost, "/tokens", token.HandleToken(cfg.DB, cfg.Mailer, cfg.TokenTimeout, cfg.Background), limited)
	a.Handle(http.MethodPost, "/tokens/activate", token.HandleActivation(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/tokens/recover", token.HandleRecovery(cfg.DB), limited)

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/categories", category.HandleList(cfg.DB))

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), creator)
	a.Handle(http.MethodGet, "/courses/dashboard", purchase.HandleDashboard(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/sales", purchase.HandleSales(cfg.DB), creator)
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), creator)
	a.Handle(http.MethodGet, "/courses/{course_id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodPut, "/courses/{course_id}", course.HandleUpdate(cfg.DB), creator)
	a.Handle(http.MethodDelete, "/courses/{course_id}", course.HandleDelete(cfg.DB, cfg.Video), creator)
	a.Handle(http.MethodPost, "/courses/{course_id}/publish", course.HandlePublish(cfg.DB), creator)
	a.Handle(http.MethodPost, "/courses/{course_id}/unpublish", course.HandleUnpublish(cfg.DB), creator)
	a.Handle(http.MethodGet, "/courses/{course_id}/progress", progress.HandleShowByCourse(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/{course_id}/chapters", chapter.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodPost, "/courses/{course_id}/chapters", chapter.HandleCreate(cfg.DB), creator)
	a.Handle(http.MethodPut, "/courses/{course_id}/chapters/reorder", chapter.HandleReorder(cfg.DB), creator)
	a.Handle(http.MethodGet, "/courses/{course_id}/chapters/{chapter_id}", chapter.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/chapters/{chapter_id}", chapter.HandleUpdate(cfg.DB, cfg.Video), creator)
	a.Handle(http.MethodDelete, "/courses/{course_id}/chapters/{chapter_id}", chapter.HandleDelete(cfg.DB, cfg.Video), creator)
	a.Handle(http.MethodPost, "/courses/{course_id}/chapters/{chapter_id}/publish", chapter.HandlePublish(cfg.DB), creator)
	a.Handle(http.MethodPost, "/courses/{course_id}/chapters/{chapter_id}/unpublish", chapter.HandleUnpublish(cfg.DB), creator)

	a.Handle(http.MethodPut, "/chapters/{chapter_id}/progress", progress.HandleUpsert(cfg.DB), authen)

	a.Handle(http.MethodPost, "/courses/{course_id}/attachments", attachment.HandleCreate(cfg.DB), creator)
	a.Handle(http.MethodGet, "/courses/{course_id}/attachments", attachment.HandleListByCourse(cfg.DB), creator)
	a.Handle(http.MethodDelete, "/courses/{course_id}/attachments/{attachment_id}", attachment.HandleDelete(cfg.DB), creator)

	a.Handle(http.MethodPost, "/purchases/paypal/{course_id}", purchase.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/purchases/paypal/{course_id}/capture/{id}", purchase.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/purchases/stripe/capture", purchase.HandleStripeCapture(cfg.DB, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/purchases/stripe/{course_id}", purchase.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
