package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

var ErrConfigExists = errors.New("config: WriteStarterConfig: file already exists")

type starterServer struct {
	Port      int    `yaml:"port"`
	Domain    string `yaml:"domain"`
	SecretKey string `yaml:"secret_key"`
}

type starterDB struct {
	Kind string `yaml:"kind"`
	File string `yaml:"file"`
}

type starterLeads struct {
	Timezone string `yaml:"timezone"`
	CORS     struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

type starterAdmin struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
}

type starterConfig struct {
	Server    starterServer `yaml:"server"`
	DB        starterDB     `yaml:"db"`
	Leads     starterLeads  `yaml:"leads"`
	Bootstrap struct {
		Admin starterAdmin `yaml:"admin"`
	} `yaml:"bootstrap"`
}

func starter(dir string) starterConfig {
	var c starterConfig
	c.Server = starterServer{
		Port:      DefaultPort,
		Domain:    "localhost",
		SecretKey: fmt.Sprintf("%x", securecookie.GenerateRandomKey(32)),
	}
	c.DB = starterDB{Kind: "sqlite", File: filepath.Join(dir, "leaddesk.db")}
	c.Leads.Timezone = DefaultLeadsTimezone
	c.Leads.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	c.Bootstrap.Admin = starterAdmin{
		Username: "admin",
		Email:    "admin@localhost",
		FullName: "Administrator",
	}
	return c
}

// WriteStarterConfig writes a minimal, valid config file with a fresh secret key. Existing files are never overwritten.
func WriteStarterConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return ErrConfigExists
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("config: WriteStarterConfig: could not create directory: %w", err)
	}

	out, err := yaml.Marshal(starter(dir))
	if err != nil {
		return fmt.Errorf("config: WriteStarterConfig: could not encode: %w", err)
	}

	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("config: WriteStarterConfig: could not write: %w", err)
	}

	log.Info().Str("path", path).Msg("wrote starter config")
	return nil
}
