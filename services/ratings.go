package services

import (
	"context"
	"math"

	"tailorfinder/models"
)

type ratingInput struct {
	Score float64 `json:"rating" validate:"min=1,max=5"`
}

// RecordRating appends a score for an existing owner and returns the updated
// aggregate.
func (s *Service) RecordRating(ctx context.Context, email string, score float64) (models.RatingAggregate, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return models.RatingAggregate{}, (*ValidationError)(nil).add("rating", "finite")
	}
	if verr := s.check(ratingInput{Score: score}); verr != nil {
		return models.RatingAggregate{}, verr
	}
	email = models.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.lookupOwner(ctx, email)
	if err != nil {
		return models.RatingAggregate{}, err
	}
	if !ok {
		return models.RatingAggregate{}, ErrOwnerNotFound
	}
	ratings, err := s.repo.RatingsForUpdate(ctx)
	if err != nil {
		return models.RatingAggregate{}, err
	}
	ratings[email] = append(ratings[email], models.ScoreEntry(score))
	if err := s.repo.SaveRatings(ctx, ratings); err != nil {
		return models.RatingAggregate{}, err
	}
	return models.AggregateRatings(ratings[email]), nil
}

func (s *Service) Aggregate(ctx context.Context, email string) models.RatingAggregate {
	return models.AggregateRatings(s.repo.Ratings(ctx)[models.NormalizeEmail(email)])
}
