package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"tailorfinder/models"
	"tailorfinder/repository"
	"tailorfinder/utils"
)

const backupFilePrefix = "tailorapp-backup"

// RestoreSummary reports which collections a restore replaced and how many
// records each now holds. Skipped collections are nil.
type RestoreSummary struct {
	Users   *int `json:"users"`
	Orders  *int `json:"orders"`
	Designs *int `json:"designs"`
}

func (s *Service) Export(ctx context.Context) models.Backup {
	b := models.Backup{
		Users:      s.repo.Owners(ctx),
		Orders:     s.repo.Orders(ctx),
		Designs:    s.repo.Designs(ctx),
		ExportedAt: s.timestamp(),
	}
	if b.Users == nil {
		b.Users = []models.Owner{}
	}
	if b.Orders == nil {
		b.Orders = []models.Order{}
	}
	if b.Designs == nil {
		b.Designs = []models.Design{}
	}
	return b
}

// ExportJSON renders the backup document with two-space indentation along
// with its download file name.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, string, error) {
	b := s.Export(ctx)
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, utils.BackupFileName(backupFilePrefix, b.ExportedAt), nil
}

// Restore replaces the collections present in data. Every present collection
// is decoded and its emails normalized before anything is written; a decode
// failure or two users sharing an email returns ErrRestoreParse and leaves the
// store untouched.
func (s *Service) Restore(ctx context.Context, data []byte) (RestoreSummary, error) {
	var doc *models.RestoreDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return RestoreSummary{}, restoreError("document", err)
	}

	var (
		summary RestoreSummary
		changes []repository.Change
	)
	if present(doc.Users) {
		var users []models.Owner
		if err := json.Unmarshal(doc.Users, &users); err != nil {
			return RestoreSummary{}, restoreError("users", err)
		}
		if err := normalizeUsers(users); err != nil {
			return RestoreSummary{}, restoreError("users", err)
		}
		summary.Users = count(len(users))
		changes = append(changes, repository.OwnersChange(users))
	}
	if present(doc.Orders) {
		var orders []models.Order
		if err := json.Unmarshal(doc.Orders, &orders); err != nil {
			return RestoreSummary{}, restoreError("orders", err)
		}
		for i := range orders {
			orders[i].OwnerEmail = models.NormalizeEmail(orders[i].OwnerEmail)
		}
		summary.Orders = count(len(orders))
		changes = append(changes, repository.OrdersChange(orders))
	}
	if present(doc.Designs) {
		var designs []models.Design
		if err := json.Unmarshal(doc.Designs, &designs); err != nil {
			return RestoreSummary{}, restoreError("designs", err)
		}
		for i := range designs {
			designs[i].OwnerEmail = models.NormalizeEmail(designs[i].OwnerEmail)
		}
		summary.Designs = count(len(designs))
		changes = append(changes, repository.DesignsChange(designs))
	}
	if len(changes) == 0 {
		return summary, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Commit(ctx, changes...); err != nil {
		return RestoreSummary{}, err
	}
	s.log.WithField("collections", len(changes)).Info("backup restored")
	return summary, nil
}

// ClearAll removes every stored collection, ratings included.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.log.Warn("all application data cleared")
	return nil
}

func normalizeUsers(users []models.Owner) error {
	seen := make(map[string]struct{}, len(users))
	for i := range users {
		email := models.NormalizeEmail(users[i].Email)
		if _, dup := seen[email]; dup {
			return fmt.Errorf("duplicate email %q", email)
		}
		seen[email] = struct{}{}
		users[i].Email = email
	}
	return nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func count(n int) *int {
	return &n
}

func restoreError(part string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s is null", ErrRestoreParse, part)
	}
	return fmt.Errorf("%w: %s: %v", ErrRestoreParse, part, err)
}
