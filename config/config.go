package config

import "time"

// Config collects every knob of the service. Values are parsed from the
// environment with the ACADEMY prefix by ardanlabs/conf.
type Config struct {
	Web    Web
	Cors   Cors
	Auth   Auth
	DB     DB
	Email  Email
	Oauth  Oauth
	Stripe Stripe
	Paypal Paypal
	Video  Video
	Rate   Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type Auth struct {
	ActivationRequired bool `conf:"default:false"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:academy"`
	DisableTLS bool   `conf:"default:true"`
}

type Email struct {
	Host          string
	Port          int    `conf:"default:587"`
	Address       string `conf:"default:no-reply@academy.dev"`
	Password      string `conf:"mask"`
	ActivationURL string
	RecoveryURL   string
	TokenTimeout  time.Duration `conf:"default:15m"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string
	CancelURL     string
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

// Video holds the credentials of the video-hosting provider.
type Video struct {
	TokenID     string
	TokenSecret string `conf:"mask"`
}

type Rate struct {
	Burst    int     `conf:"default:10"`
	Expiry   int     `conf:"default:10"`
	LimitRPS float64 `conf:"default:5"`
}
