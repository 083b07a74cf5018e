package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment with the MEDILINK prefix, e.g.
// MEDILINK_PORT, MEDILINK_MONGODB_URI. A .env file is honored when present.
type Config struct {
	Port        string   `envconfig:"PORT" default:"8080"`
	MongoURI    string   `envconfig:"MONGODB_URI" default:"mongodb://127.0.0.1:27017"`
	Database    string   `envconfig:"DATABASE" default:"medilink"`
	StoreDriver string   `envconfig:"STORE_DRIVER" default:"mongo"`
	JWTSecret   string   `envconfig:"JWT_SECRET" required:"true"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	// A live connection that stays silent for HeartbeatWindow is treated
	// as dead and deregistered.
	HeartbeatWindow time.Duration `envconfig:"HEARTBEAT_WINDOW" default:"60s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("medilink", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
