// Package store holds the persistence helpers shared by the configuration
// store backends: record shape, validation and credential sealing.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/vault"
)

var (
	// ErrInvalidKey is returned when a user or service identifier is blank.
	ErrInvalidKey = errors.New("store: user id and service name are required")
)

// Record is the persisted form of a ServiceConfiguration. When Encrypted is
// set, APIKey and Password hold vault blobs.
type Record struct {
	UserID      string    `json:"userId"`
	ServiceName string    `json:"serviceName"`
	BaseURL     string    `json:"baseUrl"`
	APIKey      string    `json:"apiKey,omitempty"`
	Username    string    `json:"username,omitempty"`
	Password    string    `json:"password,omitempty"`
	IsEnabled   bool      `json:"isEnabled"`
	Encrypted   bool      `json:"encrypted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NormalizeKey lowercases and trims identifiers so lookups are stable.
func NormalizeKey(userID, serviceName string) (string, string, error) {
	userID, err := NormalizeUser(userID)
	if err != nil {
		return "", "", err
	}
	serviceName = strings.ToLower(strings.TrimSpace(serviceName))
	if serviceName == "" {
		return "", "", ErrInvalidKey
	}
	return userID, serviceName, nil
}

// NormalizeUser trims a user id the same way NormalizeKey does.
func NormalizeUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidKey
	}
	return userID, nil
}

// Sealer converts between configurations and records, encrypting
// credentials on the way in and decrypting them on the way out.
type Sealer struct {
	vault  *vault.Vault
	logger logger.Logger
	now    func() time.Time
}

// NewSealer builds a Sealer. The vault must be configured; records are
// never written with plaintext credentials.
func NewSealer(v *vault.Vault, log logger.Logger) *Sealer {
	if log == nil {
		log = logger.Nop()
	}
	return &Sealer{vault: v, logger: log, now: time.Now}
}

// Seal validates cfg and turns it into a record ready to persist. existing
// is the currently stored record, if any, and keeps CreatedAt stable.
func (s *Sealer) Seal(cfg domain.ServiceConfiguration, existing *Record) (Record, error) {
	userID, serviceName, err := NormalizeKey(cfg.UserID, cfg.ServiceName)
	if err != nil {
		return Record{}, err
	}
	if !s.vault.IsConfigured() {
		return Record{}, vault.ErrNotConfigured
	}

	now := s.now().UTC()
	rec := Record{
		UserID:      userID,
		ServiceName: serviceName,
		BaseURL:     cfg.TrimmedBaseURL(),
		Username:    cfg.Username,
		IsEnabled:   cfg.IsEnabled,
		Encrypted:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil && !existing.CreatedAt.IsZero() {
		rec.CreatedAt = existing.CreatedAt
	}

	if rec.APIKey, err = s.encrypt(cfg.APIKey); err != nil {
		return Record{}, fmt.Errorf("seal api key: %w", err)
	}
	if rec.Password, err = s.encrypt(cfg.Password); err != nil {
		return Record{}, fmt.Errorf("seal password: %w", err)
	}
	return rec, nil
}

func (s *Sealer) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return s.vault.Encrypt(plaintext)
}

// Open decrypts rec. Records written before encryption was introduced carry
// no Encrypted marker and are returned as stored. Marked records that fail
// to decrypt are an error.
func (s *Sealer) Open(rec Record) (*domain.ServiceConfiguration, error) {
	cfg := &domain.ServiceConfiguration{
		UserID:      rec.UserID,
		ServiceName: rec.ServiceName,
		BaseURL:     rec.BaseURL,
		APIKey:      rec.APIKey,
		Username:    rec.Username,
		Password:    rec.Password,
		IsEnabled:   rec.IsEnabled,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}

	if !rec.Encrypted {
		s.logger.Warn("reading legacy plaintext configuration",
			logger.String("user_id", rec.UserID),
			logger.Service(rec.ServiceName))
		return cfg, nil
	}

	var err error
	if cfg.APIKey, err = s.decrypt(rec.APIKey); err != nil {
		return nil, fmt.Errorf("open api key for %s/%s: %w", rec.UserID, rec.ServiceName, err)
	}
	if cfg.Password, err = s.decrypt(rec.Password); err != nil {
		return nil, fmt.Errorf("open password for %s/%s: %w", rec.UserID, rec.ServiceName, err)
	}
	return cfg, nil
}

func (s *Sealer) decrypt(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	return s.vault.Decrypt(blob)
}
