package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/video"
	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
)

// stripeSession is what the mock retains of a created checkout session,
// enough for a test to forge the matching webhook event.
type stripeSession struct {
	ID       string
	Customer string
	Metadata map[string]string
}

type mockStripe struct {
	mu       sync.Mutex
	seq      int
	Sessions []stripeSession
}

func (m *mockStripe) LastSession() stripeSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sessions[len(m.Sessions)-1]
}

func (m *mockStripe) handle() http.Handler {
	customers := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.seq++
		id := fmt.Sprintf("cus_test_%d", m.seq)
		m.mu.Unlock()

		web.Respond(context.Background(), w, map[string]any{"id": id}, 200)
	})

	sessions := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		sess := stripeSession{Metadata: map[string]string{}}
		if cst, ok := params["customer"].(string); ok {
			sess.Customer = cst
		}
		if md, ok := params["metadata"].(map[string]any); ok {
			for k, v := range md {
				if s, ok := v.(string); ok {
					sess.Metadata[k] = s
				}
			}
		}

		m.mu.Lock()
		m.seq++
		sess.ID = fmt.Sprintf("cs_test_%d", m.seq)
		m.Sessions = append(m.Sessions, sess)
		m.mu.Unlock()

		obj := map[string]any{
			"id":   sess.ID,
			"url":  "https://checkout.stripe.test/pay/" + sess.ID,
			"mode": "payment",
		}
		web.Respond(context.Background(), w, obj, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/customers", customers).Methods("POST")
	r.Handle("/v1/checkout/sessions", sessions).Methods("POST")
	return r
}

type mockPaypal struct {
	mu     sync.Mutex
	seq    int
	Orders []string
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		obj := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, obj, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || len(pu.Units[0].Items) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Amount.Value != pu.Units[0].Items[0].UnitAmount.Value {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		m.mu.Lock()
		m.seq++
		id := fmt.Sprintf("paypal-%d", m.seq)
		m.Orders = append(m.Orders, id)
		m.mu.Unlock()

		ord := paypal.Order{ID: id}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.Order{ID: mux.Vars(r)["id"], Status: "COMPLETED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

// stubVideo stands in for the hosting provider: assets live in a map and
// deletes of unknown assets report video.ErrAssetNotFound like the real one.
type stubVideo struct {
	mu        sync.Mutex
	seq       int
	assets    map[string]string
	createErr error
	Deleted   []string
	Ops       []string
}

func newStubVideo() *stubVideo {
	return &stubVideo{assets: map[string]string{}}
}

// FailCreates makes every following CreateAsset return err. Pass nil to
// restore the working provider.
func (s *stubVideo) FailCreates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

func (s *stubVideo) CreateAsset(ctx context.Context, sourceURL string) (video.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return video.Asset{}, s.createErr
	}

	s.seq++
	a := video.Asset{
		ID:         fmt.Sprintf("asset-%d", s.seq),
		PlaybackID: fmt.Sprintf("playback-%d", s.seq),
	}
	s.assets[a.ID] = a.PlaybackID
	s.Ops = append(s.Ops, "create:"+a.ID)
	return a, nil
}

func (s *stubVideo) DeleteAsset(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[assetID]; !ok {
		return video.ErrAssetNotFound
	}
	delete(s.assets, assetID)
	s.Deleted = append(s.Deleted, assetID)
	s.Ops = append(s.Ops, "delete:"+assetID)
	return nil
}

// OpsLog returns a copy of the provider calls in arrival order.
func (s *stubVideo) OpsLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Ops...)
}

func (s *stubVideo) Alive(assetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.assets[assetID]
	return ok
}
