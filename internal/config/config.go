package config

import (
	"encoding/hex"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the proxy settings, read from the environment and an optional
// .env file in the working directory.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Key server endpoint and the credentials the requests are made under.
	KeyServerURL string `envconfig:"KEY_SERVER_URL" required:"true"`
	Signer       string `envconfig:"SIGNER" required:"true"`
	SignerKey    string `envconfig:"SIGNER_KEY"`
	SignerIV     string `envconfig:"SIGNER_IV"`

	Policy string `envconfig:"POLICY"`
	Tracks string `envconfig:"TRACKS" default:"SD,HD,AUDIO"`

	// Packaging origin serving clear manifests, optional.
	OriginURL string `envconfig:"ORIGIN_URL"`
	UserAgent string `envconfig:"USER_AGENT"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env files (missing files are ignored) then the environment.
func Load(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "load env file")
	}

	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects signing material that could never produce a signature.
func (c *Config) Validate() error {
	if (c.SignerKey == "") != (c.SignerIV == "") {
		return errors.New("SIGNER_KEY and SIGNER_IV must be set together")
	}

	if c.SignerKey == "" {
		return nil
	}

	key, err := hex.DecodeString(c.SignerKey)

	if err != nil {
		return errors.Wrap(err, "decode SIGNER_KEY")
	}

	switch len(key) {
	case 16, 24, 32:
	default:
		return errors.Errorf("SIGNER_KEY must be 16, 24 or 32 bytes, got %d", len(key))
	}

	iv, err := hex.DecodeString(c.SignerIV)

	if err != nil {
		return errors.Wrap(err, "decode SIGNER_IV")
	}

	if len(iv) != 16 {
		return errors.Errorf("SIGNER_IV must be 16 bytes, got %d", len(iv))
	}

	return nil
}

// Signs reports whether key requests should be signed.
func (c *Config) Signs() bool {
	return c.SignerKey != "" && c.SignerIV != ""
}
