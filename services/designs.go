package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/exp/slices"

	"tailorfinder/models"
	"tailorfinder/session"
	"tailorfinder/utils"
)

var allowedMediaTypes = map[string]models.DesignType{
	"image/jpeg": models.DesignTypeImage,
	"image/png":  models.DesignTypeImage,
	"image/webp": models.DesignTypeImage,
	"video/mp4":  models.DesignTypeVideo,
	"video/webm": models.DesignTypeVideo,
	"video/ogg":  models.DesignTypeVideo,
}

// UploadFile is one selected file. Size is the declared size; it may be zero
// when unknown, in which case only the bytes actually read are checked.
type UploadFile struct {
	Name      string
	MediaType string
	Size      int64
	Content   io.Reader
}

type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

type UploadReport struct {
	Uploaded int             `json:"uploaded"`
	Designs  []models.Design `json:"designs"`
	Skipped  []SkippedFile   `json:"skipped"`
}

// UploadDesigns encodes each acceptable file and stores it for the session
// owner. Files are judged independently, so one bad file does not stop the
// rest. A cancelled context stops before the next file and nothing is saved.
func (s *Service) UploadDesigns(ctx context.Context, sess session.Session, files []UploadFile) (UploadReport, error) {
	report := UploadReport{Designs: []models.Design{}, Skipped: []SkippedFile{}}
	if len(files) == 0 {
		return report, (*ValidationError)(nil).add("files", "required")
	}
	email := models.NormalizeEmail(sess.OwnerEmail)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return UploadReport{}, err
		}
		design, err := s.encodeDesign(email, f)
		if err != nil {
			s.log.WithField("file", f.Name).WithError(err).Warn("design upload skipped")
			report.Skipped = append(report.Skipped, SkippedFile{Name: f.Name, Reason: err.Error(), Err: err})
			continue
		}
		report.Designs = append(report.Designs, design)
	}
	report.Uploaded = len(report.Designs)
	if report.Uploaded == 0 {
		return report, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	designs, err := s.repo.DesignsForUpdate(ctx)
	if err != nil {
		return UploadReport{}, err
	}
	for _, d := range report.Designs {
		designs = append([]models.Design{d}, designs...)
	}
	if err := s.repo.SaveDesigns(ctx, designs); err != nil {
		return UploadReport{}, err
	}
	s.log.WithField("owner", email).Infof("uploaded %d designs", report.Uploaded)
	return report, nil
}

func (s *Service) encodeDesign(email string, f UploadFile) (models.Design, error) {
	mediaType, _, err := mime.ParseMediaType(f.MediaType)
	if err != nil {
		return models.Design{}, ErrUnsupportedFile
	}
	kind, ok := allowedMediaTypes[strings.ToLower(mediaType)]
	if !ok {
		return models.Design{}, ErrUnsupportedFile
	}
	if f.Size > s.maxUploadBytes {
		return models.Design{}, ErrFileTooLarge
	}
	if f.Content == nil {
		return models.Design{}, fmt.Errorf("%s: no content", f.Name)
	}

	data, err := utils.EncodeDataURL(f.Content, mediaType, s.maxUploadBytes)
	if errors.Is(err, utils.ErrContentTooLarge) {
		return models.Design{}, ErrFileTooLarge
	}
	if err != nil {
		return models.Design{}, err
	}

	id, err := s.newDesignID()
	if err != nil {
		return models.Design{}, fmt.Errorf("failed to generate design id: %w", err)
	}
	return models.Design{
		ID:         id,
		OwnerEmail: email,
		Type:       kind,
		Data:       data,
		Title:      f.Name,
		UploadedAt: s.timestamp(),
	}, nil
}

// DeleteDesign removes a design only when it belongs to the session owner.
func (s *Service) DeleteDesign(ctx context.Context, sess session.Session, designID string) (bool, error) {
	email := models.NormalizeEmail(sess.OwnerEmail)

	s.mu.Lock()
	defer s.mu.Unlock()

	designs, err := s.repo.DesignsForUpdate(ctx)
	if err != nil {
		return false, err
	}
	before := len(designs)
	designs = slices.DeleteFunc(designs, func(d models.Design) bool {
		return d.ID == designID && sameOwner(d.OwnerEmail, email)
	})
	if len(designs) == before {
		return false, nil
	}
	if err := s.repo.SaveDesigns(ctx, designs); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListDesignsForOwner(ctx context.Context, email string) []models.Design {
	email = models.NormalizeEmail(email)
	designs := []models.Design{}
	for _, d := range s.repo.Designs(ctx) {
		if sameOwner(d.OwnerEmail, email) {
			designs = append(designs, d)
		}
	}
	return designs
}
