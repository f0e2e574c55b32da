package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

		Server   HttpServerProperties `envPrefix:"HTTP_"`
		Google   GoogleProperties     `envPrefix:"GOOGLE_"`
		Auth     AuthProperties       `envPrefix:"AUTH_"`
		S3       S3Properties         `envPrefix:"S3_"`
		DB       DBProperties         `envPrefix:"DB_"`
		Cache    CacheProperties      `envPrefix:"MEMCACHED_"`
		Graph    GraphProperties      `envPrefix:"GRAPH_"`
		Messages NatsProperties       `envPrefix:"NATS_"`
	}

	HttpServerProperties struct {
		Name           string        `env:"NAME" envDefault:"spotserv"`
		Port           string        `env:"PORT" envDefault:"8088"`
		ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
		AllowOrigins   []string      `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
		Debug          bool          `env:"DEBUG" envDefault:"false"`
		MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	}

	// GoogleProperties holds both Google keys. PlacesAPIKey never leaves the
	// server; MapsAPIKey is handed to the browser through /api/config.
	GoogleProperties struct {
		PlacesAPIKey   string        `env:"PLACES_API_KEY"`
		MapsAPIKey     string        `env:"MAPS_API_KEY"`
		PlacesURL      string        `env:"PLACES_URL" envDefault:"https://maps.googleapis.com/maps/api/place/nearbysearch/json"`
		PlacesTimeout  time.Duration `env:"PLACES_TIMEOUT" envDefault:"10s"`
		PlacesCacheTTL time.Duration `env:"PLACES_CACHE_TTL" envDefault:"5m"`
	}

	AuthProperties struct {
		Host              string        `env:"HOST"`
		ID                string        `env:"ID"`
		Secret            string        `env:"SECRET"`
		Redirect          string        `env:"REDIRECT_URL" envDefault:"http://localhost:8088/auth/callback"`
		SessionSecret     string        `env:"SESSION_SECRET"`
		SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"168h"`
		SessionCookieName string        `env:"SESSION_COOKIE" envDefault:"sp_session"`
		StateCookieName   string        `env:"STATE_COOKIE" envDefault:"sp_oauth_state"`
		CookieDomain      string        `env:"COOKIE_DOMAIN" envDefault:"localhost"`
	}

	S3Properties struct {
		Host         string `env:"HOST" envDefault:"localhost:9000"`
		AccessKey    string `env:"ACCESS_KEY"`
		SecretKey    string `env:"SECRET_KEY"`
		UseSSL       bool   `env:"USE_SSL" envDefault:"true"`
		PostBucket   string `env:"POST_BUCKET" envDefault:"post-images"`
		AvatarBucket string `env:"AVATAR_BUCKET" envDefault:"avatars"`
		PublicURL    string `env:"PUBLIC_URL"`
	}

	DBProperties struct {
		URL      string `env:"URL"`
		MaxConns int32  `env:"MAX_CONNS" envDefault:"20"`
	}

	CacheProperties struct {
		Servers []string `env:"SERVERS" envSeparator:","`
	}

	GraphProperties struct {
		URL      string `env:"URL"`
		Username string `env:"USERNAME" envDefault:"neo4j"`
		Password string `env:"PASSWORD"`
	}

	NatsProperties struct {
		URL string `env:"URL"`
	}
)

// ReadProperties loads an optional .env file and then parses the process
// environment.
func ReadProperties() (*Properties, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	config := &Properties{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	return config, nil
}

// PublicBaseURL is the prefix browsers use to fetch stored objects.
func (s S3Properties) PublicBaseURL() string {
	if s.PublicURL != "" {
		return s.PublicURL
	}
	scheme := "http"
	if s.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, s.Host)
}
