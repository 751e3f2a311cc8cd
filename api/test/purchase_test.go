package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/avelic/academy/core/chapter"
	"github.com/avelic/academy/core/purchase"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type purchaseTest struct {
	*TestEnv
}

// stripeEvent forges the signed checkout-completed webhook delivery for
// the given mock session.
func (pt *purchaseTest) stripeEvent(t *testing.T, sess stripeSession) ([]byte, string) {
	t.Helper()

	obj := map[string]any{
		"id":       sess.ID,
		"mode":     stripe.CheckoutSessionModePayment,
		"metadata": sess.Metadata,
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: stripe.APIVersion,
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    pt.WebhookSecret,
		Timestamp: time.Now(),
	})

	return b, signed.Header
}

func (pt *purchaseTest) deliverStripe(t *testing.T, payload []byte, signature string) {
	t.Helper()

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/purchases/stripe/capture", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signature)

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("stripe webhook delivery: status %s", w.Status)
	}
}

func (pt *purchaseTest) dashboard(t *testing.T) purchase.Dashboard {
	t.Helper()

	var dash purchase.Dashboard
	pt.Do(t, http.MethodGet, "/courses/dashboard", nil, &dash, http.StatusOK)
	return dash
}

func TestPurchase(t *testing.T) {
	env := NewTestEnv(t, "purchase_test")
	ct := &courseTest{env}
	cht := &chapterTest{env}
	pt := &purchaseTest{env}

	env.Login(t, env.CreatorEmail, env.CreatorPass)

	c1 := ct.createCourseOK(t, "Welding")
	ct.fillCourseOK(t, c1.ID, 60)
	ch1 := cht.createChapterOK(t, c1.ID, "Arcs")
	cht.readyChapterOK(t, c1.ID, ch1.ID)
	cht.publishChapterOK(t, c1.ID, ch1.ID)
	ct.publishCourseOK(t, c1.ID)

	c2 := ct.createCourseOK(t, "Casting")
	ct.fillCourseOK(t, c2.ID, 40)
	ch2 := cht.createChapterOK(t, c2.ID, "Molds")
	cht.readyChapterOK(t, c2.ID, ch2.ID)
	cht.publishChapterOK(t, c2.ID, ch2.ID)
	ct.publishCourseOK(t, c2.ID)

	draft := ct.createCourseOK(t, "Unfinished")

	env.Logout(t)
	env.Login(t, env.LearnerEmail, env.LearnerPass)

	// Drafts can't be bought.
	env.Do(t, http.MethodPost, "/purchases/stripe/"+draft.ID, nil, nil, http.StatusUnprocessableEntity)

	// Stripe: checkout, then the provider confirms via webhook.
	var checkoutURL string
	env.Do(t, http.MethodPost, "/purchases/stripe/"+c1.ID, nil, &checkoutURL, http.StatusOK)
	if checkoutURL == "" {
		t.Fatal("stripe checkout returned no redirect URL")
	}

	sess := env.Stripe.LastSession()
	if sess.Metadata["userId"] != env.LearnerID || sess.Metadata["courseId"] != c1.ID {
		t.Fatalf("checkout session metadata %v, want user %s and course %s", sess.Metadata, env.LearnerID, c1.ID)
	}
	if sess.Customer == "" {
		t.Fatal("checkout session was created without a customer")
	}

	payload, signature := pt.stripeEvent(t, sess)
	pt.deliverStripe(t, payload, signature)

	dash := pt.dashboard(t)
	if len(dash.InProgress) != 1 || dash.InProgress[0].ID != c1.ID {
		t.Fatalf("dashboard after purchase %+v, want course %s in progress", dash, c1.ID)
	}

	// A replayed delivery of the same event changes nothing.
	pt.deliverStripe(t, payload, signature)

	dash = pt.dashboard(t)
	if got := len(dash.InProgress) + len(dash.Completed); got != 1 {
		t.Fatalf("dashboard holds %d courses after webhook replay, want 1", got)
	}

	// Buying an owned course is rejected at checkout.
	env.Do(t, http.MethodPost, "/purchases/stripe/"+c1.ID, nil, nil, http.StatusUnprocessableEntity)

	// The purchase unlocks playback.
	var view chapter.ChapterView
	env.Do(t, http.MethodGet, "/courses/"+c1.ID+"/chapters/"+ch1.ID, nil, &view, http.StatusOK)
	if !view.Purchased || view.PlaybackID == nil {
		t.Fatalf("chapter view after purchase %+v, want playback unlocked", view)
	}

	// The second course goes through paypal.
	var ord paypal.Order
	env.Do(t, http.MethodPost, "/purchases/paypal/"+c2.ID, nil, &ord, http.StatusOK)
	if ord.ID == "" {
		t.Fatal("paypal checkout returned no order")
	}

	// The order is bound to the course it was created for: capturing it
	// against another course grants nothing.
	env.Do(t, http.MethodPost, "/purchases/paypal/"+c1.ID+"/capture/"+ord.ID, nil, nil, http.StatusUnprocessableEntity)

	dash = pt.dashboard(t)
	if got := len(dash.InProgress) + len(dash.Completed); got != 1 {
		t.Fatalf("dashboard holds %d courses after a mismatched capture, want 1", got)
	}

	// An order id that never went through checkout is unknown.
	env.Do(t, http.MethodPost, "/purchases/paypal/"+c2.ID+"/capture/FORGED", nil, nil, http.StatusNotFound)

	env.Do(t, http.MethodPost, "/purchases/paypal/"+c2.ID+"/capture/"+ord.ID, nil, nil, http.StatusNoContent)

	dash = pt.dashboard(t)
	if got := len(dash.InProgress) + len(dash.Completed); got != 2 {
		t.Fatalf("dashboard holds %d courses, want 2", got)
	}

	// Completing the single chapter moves the course to the finished pile.
	progressT := &progressTest{env}
	progressT.setCompleted(t, ch2.ID, true)

	dash = pt.dashboard(t)
	if len(dash.Completed) != 1 || dash.Completed[0].ID != c2.ID {
		t.Fatalf("dashboard completed %+v, want course %s", dash.Completed, c2.ID)
	}

	// The creator sees both sales.
	env.Logout(t)
	env.Login(t, env.CreatorEmail, env.CreatorPass)

	var sales []purchase.Sale
	env.Do(t, http.MethodGet, "/courses/sales", nil, &sales, http.StatusOK)
	if len(sales) != 2 {
		t.Fatalf("creator sees %d sales rows, want 2", len(sales))
	}

	revenue := 0
	for _, s := range sales {
		if s.Sales != 1 {
			t.Fatalf("sale row %+v, want a single purchase", s)
		}
		revenue += s.Revenue
	}
	if revenue != 100 {
		t.Fatalf("total revenue %d, want 100", revenue)
	}
}
