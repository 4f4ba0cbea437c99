// Package services implements the marketplace rules on top of the stored
// collections: owner accounts, orders, designs, ratings and backups.
//
// Every mutation is a whole-collection read-modify-write. A Service
// serializes its own writers; separate processes sharing one store still
// overwrite each other, last write wins.
package services

import (
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"

	"tailorfinder/models"
	"tailorfinder/repository"
	"tailorfinder/session"
)

const (
	DefaultMaxUploadBytes = 8 << 20

	// isoMillis matches the millisecond ISO-8601 timestamps of stored records.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

var (
	ErrDuplicateEmail     = errors.New("an owner with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOwnerNotFound      = errors.New("owner not found")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrRestoreParse       = errors.New("invalid backup document")
)

type Options struct {
	MaxUploadBytes int64
	Logger         logrus.FieldLogger
}

type Service struct {
	repo     *repository.Repository
	sessions *session.Manager
	validate *validator.Validate
	log      logrus.FieldLogger

	maxUploadBytes int64
	now            func() time.Time
	newOrderID     func() (string, error)
	newDesignID    func() (string, error)

	mu sync.Mutex
}

func New(repo *repository.Repository, sessions *session.Manager, opts Options) *Service {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		repo:           repo,
		sessions:       sessions,
		validate:       newValidator(),
		log:            opts.Logger,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            time.Now,
		newOrderID:     shortid.Generate,
		newDesignID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// Sessions exposes the session manager for request authentication.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(isoMillis)
}

func sameOwner(stored, email string) bool {
	return models.NormalizeEmail(stored) == email
}
