package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/titanous/json5"
)

// Credentials is the database login file passed with --db-config.
// Only user and password are required; the rest override the configured database settings.
type Credentials struct {
	User     string `json:"user" validate:"required"`
	Password string `json:"password" validate:"required"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Database string `json:"database,omitempty"`
}

var validate = validator.New()

// LoadCredentials reads a credentials file. A sibling "<name>.local.<ext>" file, when
// present, is merged over it so developers can keep local passwords out of the repo.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json5.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	localPath := localVariant(path)
	localData, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	if len(localData) > 0 {
		var override Credentials
		if err := json5.Unmarshal(localData, &override); err != nil {
			return nil, fmt.Errorf("failed to parse credentials file %s: %w", localPath, err)
		}
		if err := mergo.Merge(&creds, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge credentials: %w", err)
		}
	}

	if err := validate.Struct(&creds); err != nil {
		return nil, fmt.Errorf("invalid credentials file %s: %w", path, err)
	}

	return &creds, nil
}

// ApplyCredentials overrides the database settings with every non-empty credential field.
func (c *Config) ApplyCredentials(creds *Credentials) error {
	if creds == nil {
		return nil
	}
	override := DatabaseConfig{
		User:     creds.User,
		Password: creds.Password,
		Host:     creds.Host,
		Port:     creds.Port,
		Name:     creds.Database,
	}
	if err := mergo.Merge(&c.Database, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply credentials: %w", err)
	}
	return nil
}

func localVariant(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, name+".local"+ext)
}
