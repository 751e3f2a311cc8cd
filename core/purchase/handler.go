package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/config"
	"github.com/avelic/academy/core/claims"
	"github.com/avelic/academy/core/course"
	"github.com/avelic/academy/core/progress"
	"github.com/avelic/academy/core/user"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/validate"
	"github.com/jmoiron/sqlx"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/plutov/paypal/v4"
)

// checkout loads the course and rejects purchases that can't proceed:
// the course must be published, priced and not already owned.
func checkout(ctx context.Context, db *sqlx.DB, userID string, courseID string) (course.Course, error) {
	c, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return course.Course{}, weberr.NotFound(err)
		}
		return course.Course{}, weberr.Unavailable(err)
	}

	if !c.Published || c.Price == nil {
		err := errors.New("course is not available for purchase")
		return course.Course{}, weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
	}

	owned, err := Exists(ctx, db, userID, courseID)
	if err != nil {
		return course.Course{}, weberr.Unavailable(err)
	}
	if owned {
		err := errors.New("course already purchased")
		return course.Course{}, weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
	}

	return c, nil
}

// fulfill records the purchase. Safe to call more than once for the
// same (user, course) pair: replays are swallowed by the insert.
func fulfill(ctx context.Context, db *sqlx.DB, userID string, courseID string) error {
	p := Purchase{
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	}

	if err := Create(ctx, db, p); err != nil {
		return fmt.Errorf("recording purchase of course[%s] by user[%s]: %w", courseID, userID, err)
	}
	return nil
}

// customer returns the user's stripe customer, creating and caching it
// on first purchase.
func customer(ctx context.Context, db *sqlx.DB, strp *stripecl.API, userID string) (string, error) {
	cst, err := fetchCustomer(ctx, db, userID)
	if err == nil {
		return cst.CustomerID, nil
	}
	if !errors.Is(err, database.ErrDBNotFound) {
		return "", err
	}

	usr, err := user.Fetch(ctx, db, userID)
	if err != nil {
		return "", fmt.Errorf("fetching user[%s]: %w", userID, err)
	}

	sc, err := strp.Customers.New(&stripe.CustomerParams{Email: stripe.String(usr.Email)})
	if err != nil {
		return "", fmt.Errorf("creating stripe customer for user[%s]: %w", userID, err)
	}

	cst = Customer{UserID: userID, CustomerID: sc.ID}
	if err := createCustomer(ctx, db, cst); err != nil {
		return "", err
	}

	return sc.ID, nil
}

func HandleStripeCheckout(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := checkout(ctx, db, clm.UserID, courseID)
		if err != nil {
			return err
		}

		cst, err := customer(ctx, db, strp, clm.UserID)
		if err != nil {
			return fmt.Errorf("resolving stripe customer: %w", err)
		}

		var desc string
		if c.Description != nil {
			desc = *c.Description
		}

		params := &stripe.CheckoutSessionParams{
			Customer:   stripe.String(cst),
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),

			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String("usd"),
					TaxBehavior: stripe.String("inclusive"),
					UnitAmount:  stripe.Int64(int64(*c.Price) * 100),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(c.Title),
						Description: stripe.String(desc),
					},
				},
			}},

			// The capture webhook recovers the purchase from these.
			Params: stripe.Params{Metadata: map[string]string{
				"userId":   clm.UserID,
				"courseId": c.ID,
			}},
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

func HandleStripeCapture(db *sqlx.DB, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		userID := session.Metadata["userId"]
		courseID := session.Metadata["courseId"]
		if userID == "" || courseID == "" {
			return weberr.BadRequest(errors.New("stripe event is missing purchase metadata"))
		}

		if err := fulfill(ctx, db, userID, courseID); err != nil {
			return fmt.Errorf("the course was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := checkout(ctx, db, clm.UserID, courseID)
		if err != nil {
			return err
		}

		var desc string
		if c.Description != nil {
			desc = *c.Description
		}

		price := strconv.Itoa(*c.Price)
		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity:    "1",
				Name:        c.Title,
				Description: desc,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    price,
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    price,

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    price,
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		pend := Order{
			ProviderID: ord.ID,
			UserID:     clm.UserID,
			CourseID:   c.ID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := createOrder(ctx, db, pend); err != nil {
			return fmt.Errorf("binding paypal order[%s] to its checkout: %w", ord.ID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		providerID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ord, err := fetchOrder(ctx, db, providerID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Unavailable(err)
		}

		// Another user's pending order is invisible to the caller.
		if ord.UserID != clm.UserID {
			return weberr.NotFound(errors.New("pending paypal order not found"))
		}

		if ord.CourseID != courseID {
			err := errors.New("paypal order was created for a different course")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		if err := fulfill(ctx, db, ord.UserID, ord.CourseID); err != nil {
			return fmt.Errorf("the course was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleDashboard lists the learner's purchased courses split by
// completion.
func HandleDashboard(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cs, err := FetchCoursesByUser(ctx, db, clm.UserID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		dash := Dashboard{
			Completed:  []DashboardCourse{},
			InProgress: []DashboardCourse{},
		}

		for _, c := range cs {
			pct, err := progress.Compute(ctx, db, clm.UserID, c.ID)
			if err != nil {
				return weberr.Unavailable(err)
			}

			dc := DashboardCourse{Course: c, Progress: pct}
			if pct == 100 {
				dash.Completed = append(dash.Completed, dc)
			} else {
				dash.InProgress = append(dash.InProgress, dc)
			}
		}

		return web.Respond(ctx, w, dash, http.StatusOK)
	}
}

// HandleSales reports the creator's revenue grouped by course.
func HandleSales(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		sales, err := FetchSales(ctx, db, clm.UserID)
		if err != nil {
			return weberr.Unavailable(err)
		}

		return web.Respond(ctx, w, sales, http.StatusOK)
	}
}
