package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"tailorfinder/models"
	"tailorfinder/repository"
	"tailorfinder/session"
	"tailorfinder/utils"
)

const ownerCardPreviews = 3

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Place    string `json:"place" validate:"required"`
	// bcrypt rejects passwords longer than 72 bytes.
	Password string `json:"password" validate:"required,maxbytes=72"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Owner, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Place = strings.TrimSpace(in.Place)
	if verr := s.check(in); verr != nil {
		return models.Owner{}, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.repo.OwnersForUpdate(ctx)
	if err != nil {
		return models.Owner{}, err
	}
	if _, exists := models.IndexOwners(owners).Lookup(in.Email); exists {
		return models.Owner{}, ErrDuplicateEmail
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.Owner{}, fmt.Errorf("failed to hash password: %w", err)
	}
	owner := models.Owner{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Place:    in.Place,
		Password: hashedPassword,
	}
	if err := s.repo.SaveOwners(ctx, append(owners, owner)); err != nil {
		return models.Owner{}, err
	}
	s.log.WithField("owner", owner.Email).Info("owner registered")
	return owner, nil
}

// Login checks the credentials and opens a session. Unknown emails and wrong
// passwords fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.Owner, error) {
	owner, ok, err := s.lookupOwner(ctx, email)
	if err != nil {
		return "", models.Owner{}, err
	}
	if !ok || utils.CheckPassword(owner.Password, password) != nil {
		return "", models.Owner{}, ErrInvalidCredentials
	}
	token, _, err := s.sessions.Begin(ctx, models.NormalizeEmail(owner.Email))
	if err != nil {
		return "", models.Owner{}, err
	}
	return token, owner, nil
}

func (s *Service) Logout(ctx context.Context, sess session.Session) error {
	return s.sessions.End(ctx, sess)
}

// DeleteAccount removes the session owner together with their orders,
// designs and ratings in one commit, then ends the session.
func (s *Service) DeleteAccount(ctx context.Context, sess session.Session) error {
	email := models.NormalizeEmail(sess.OwnerEmail)

	if err := s.deleteOwnerData(ctx, email); err != nil {
		return err
	}

	s.log.WithField("owner", email).Info("owner account deleted")
	return s.sessions.End(ctx, sess)
}

func (s *Service) deleteOwnerData(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.repo.OwnersForUpdate(ctx)
	if err != nil {
		return err
	}
	orders, err := s.repo.OrdersForUpdate(ctx)
	if err != nil {
		return err
	}
	designs, err := s.repo.DesignsForUpdate(ctx)
	if err != nil {
		return err
	}
	ratings, err := s.repo.RatingsForUpdate(ctx)
	if err != nil {
		return err
	}

	owners = slices.DeleteFunc(owners, func(o models.Owner) bool { return sameOwner(o.Email, email) })
	orders = slices.DeleteFunc(orders, func(o models.Order) bool { return sameOwner(o.OwnerEmail, email) })
	designs = slices.DeleteFunc(designs, func(d models.Design) bool { return sameOwner(d.OwnerEmail, email) })
	delete(ratings, email)
	return s.repo.Commit(ctx,
		repository.OwnersChange(owners),
		repository.OrdersChange(orders),
		repository.DesignsChange(designs),
		repository.RatingsChange(ratings),
	)
}

// lookupOwner is Owner for callers that must not mistake a store failure for
// a missing owner.
func (s *Service) lookupOwner(ctx context.Context, email string) (models.Owner, bool, error) {
	owners, err := s.repo.OwnersForUpdate(ctx)
	if err != nil {
		return models.Owner{}, false, err
	}
	owner, ok := models.IndexOwners(owners).Lookup(email)
	return owner, ok, nil
}

func (s *Service) Owner(ctx context.Context, email string) (models.Owner, bool) {
	return models.IndexOwners(s.repo.Owners(ctx)).Lookup(email)
}

func (s *Service) ListOwners(ctx context.Context) []models.Owner {
	return s.SearchOwners(ctx, "")
}

// SearchOwners matches name, email, place and phone, ignoring case. An empty
// query returns every owner.
func (s *Service) SearchOwners(ctx context.Context, query string) []models.Owner {
	owners := s.repo.Owners(ctx)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		if owners == nil {
			return []models.Owner{}
		}
		return owners
	}
	matched := make([]models.Owner, 0, len(owners))
	for _, o := range owners {
		if containsFold(q, o.Name, o.Email, o.Place, o.Phone) {
			matched = append(matched, o)
		}
	}
	return matched
}

// ListOwnerCards is the owners listing: profile, rating and the first few
// designs of every owner matching query.
func (s *Service) ListOwnerCards(ctx context.Context, query string) []models.OwnerCard {
	owners := s.SearchOwners(ctx, query)
	designs := s.repo.Designs(ctx)
	ratings := s.repo.Ratings(ctx)

	cards := make([]models.OwnerCard, 0, len(owners))
	for _, o := range owners {
		email := models.NormalizeEmail(o.Email)
		card := models.OwnerCard{
			Owner:    o.Profile(),
			Rating:   models.AggregateRatings(ratings[email]),
			Previews: []models.Design{},
		}
		for _, d := range designs {
			if !sameOwner(d.OwnerEmail, email) {
				continue
			}
			card.DesignCount++
			if len(card.Previews) < ownerCardPreviews {
				card.Previews = append(card.Previews, d)
			}
		}
		cards = append(cards, card)
	}
	return cards
}

// containsFold reports whether any field contains q; q must be lowercase.
func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Authenticate resolves a session token. A session whose owner no longer
// exists is closed and rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (session.Session, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return session.Session{}, err
	}
	_, ok, err := s.lookupOwner(ctx, sess.OwnerEmail)
	if err != nil {
		return session.Session{}, err
	}
	if !ok {
		_ = s.sessions.End(ctx, sess)
		return session.Session{}, session.ErrInvalidSession
	}
	return sess, nil
}
