package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/avelic/academy/api"
	"github.com/avelic/academy/api/background"
	"github.com/avelic/academy/config"
	"github.com/avelic/academy/core/auth"
	"github.com/avelic/academy/core/claims"
	"github.com/avelic/academy/core/user"
	"github.com/avelic/academy/database"
	"github.com/avelic/academy/rate"
	"github.com/avelic/academy/validate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"golang.org/x/crypto/bcrypt"
)

const webhookSecret = "whsec_test"

type TestEnv struct {
	URL    string
	DB     *sqlx.DB
	Video  *stubVideo
	Stripe *mockStripe
	Paypal *mockPaypal

	CreatorID    string
	CreatorEmail string
	CreatorPass  string
	LearnerID    string
	LearnerEmail string
	LearnerPass  string

	WebhookSecret string

	client *http.Client
}

// NewTestEnv spins up the whole API against a fresh database and mocked
// payment and video providers.
func NewTestEnv(t *testing.T, dbName string) *TestEnv {
	t.Helper()

	admin, err := database.Open(config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       dbHost,
		Name:       "postgres",
		DisableTLS: true,
	})
	if err != nil {
		t.Fatalf("opening admin db connection: %v", err)
	}
	defer admin.Close()

	if _, err := admin.Exec("CREATE DATABASE " + dbName); err != nil {
		t.Fatalf("creating database %s: %v", dbName, err)
	}

	db, err := database.Open(config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       dbHost,
		Name:       dbName,
		DisableTLS: true,
	})
	if err != nil {
		t.Fatalf("opening db connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating db: %v", err)
	}

	env := &TestEnv{
		DB:            db,
		Video:         newStubVideo(),
		Stripe:        &mockStripe{},
		Paypal:        &mockPaypal{},
		CreatorEmail:  "creator@test.io",
		CreatorPass:   "creatorpass",
		LearnerEmail:  "learner@test.io",
		LearnerPass:   "learnerpass",
		WebhookSecret: webhookSecret,
	}

	env.CreatorID = env.seedUser(t, "Creator", env.CreatorEmail, env.CreatorPass, claims.RoleCreator)
	env.LearnerID = env.seedUser(t, "Learner", env.LearnerEmail, env.LearnerPass, claims.RoleUser)

	ppSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(ppSrv.Close)

	pp, err := paypal.NewClient("client", "secret", ppSrv.URL)
	if err != nil {
		t.Fatalf("building paypal client: %v", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		t.Fatalf("fetching paypal access token: %v", err)
	}

	stripeSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stripeSrv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_xyz", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	session := scs.New()
	session.Lifetime = time.Hour

	stripeCfg := config.Stripe{
		WebhookSecret: webhookSecret,
		SuccessURL:    "http://localhost:3000/success",
		CancelURL:     "http://localhost:3000/cancel",
	}

	mux := api.APIMux(api.APIConfig{
		Log:          logger,
		DB:           db,
		Session:      session,
		Mailer:       nopMailer{},
		TokenTimeout: time.Minute,
		Background:   background.New(logger),
		Paypal:       pp,
		Stripe:       strp,
		StripeCfg:    stripeCfg,
		Video:        env.Video,
		Providers:    map[string]auth.Provider{},
		Limiter:      rate.NewLimiter(1000, 10, 1000),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	env.URL = srv.URL

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("building cookie jar: %v", err)
	}
	env.client = &http.Client{Jar: jar}

	return env
}

func (te *TestEnv) seedUser(t *testing.T, name string, email string, pass string, role string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		Role:         role,
		Active:       true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(context.Background(), te.DB, usr); err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return usr.ID
}

func (te *TestEnv) Client() *http.Client {
	return te.client
}

func (te *TestEnv) Login(t *testing.T, email string, pass string) {
	t.Helper()

	body := map[string]string{"email": email, "password": pass}
	te.Do(t, http.MethodPost, "/auth/login", body, nil, http.StatusOK)
}

func (te *TestEnv) Logout(t *testing.T) {
	t.Helper()
	te.Do(t, http.MethodPost, "/auth/logout", nil, nil, http.StatusNoContent)
}

// Do sends a JSON request through the session-aware client, asserts the
// status and decodes the response into out when given.
func (te *TestEnv) Do(t *testing.T, method string, path string, body any, out any, wantStatus int) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, te.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := te.client.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != wantStatus {
		b, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: status %s, want %d: %s", method, path, w.Status, wantStatus, b)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
}

type nopMailer struct{}

func (nopMailer) SendToken(scope string, token string, to string) error {
	return nil
}
