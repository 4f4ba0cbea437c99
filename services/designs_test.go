package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailorfinder/models"
)

func pngFile(name string) UploadFile {
	return UploadFile{Name: name, MediaType: "image/png", Size: 4, Content: strings.NewReader("\x89PNG")}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestUploadDesignsPartialSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1")
	sess := f.login(t, "a@x.com", "p1")

	files := []UploadFile{
		pngFile("front.png"),
		{Name: "notes.pdf", MediaType: "application/pdf", Size: 3, Content: strings.NewReader("pdf")},
		{Name: "huge.png", MediaType: "image/png", Size: 1 << 20, Content: strings.NewReader("x")},
		{Name: "liar.png", MediaType: "image/png", Size: 1, Content: strings.NewReader(strings.Repeat("x", 17))},
		{Name: "broken.png", MediaType: "image/png", Size: 1, Content: brokenReader{}},
		{Name: "clip.mp4", MediaType: "video/mp4; codecs=avc1", Size: 2, Content: strings.NewReader("mp")},
	}
	report, err := f.svc.UploadDesigns(ctx, sess, files)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Uploaded)
	require.Len(t, report.Skipped, 4)
	assert.Equal(t, "notes.pdf", report.Skipped[0].Name)
	assert.ErrorIs(t, report.Skipped[0].Err, ErrUnsupportedFile)
	assert.ErrorIs(t, report.Skipped[1].Err, ErrFileTooLarge)
	assert.ErrorIs(t, report.Skipped[2].Err, ErrFileTooLarge)
	assert.EqualError(t, report.Skipped[3].Err, "disk gone")

	designs := f.svc.ListDesignsForOwner(ctx, "A@X.com")
	require.Len(t, designs, 2)
	assert.Equal(t, "clip.mp4", designs[0].Title, "newest upload first")
	assert.Equal(t, models.DesignTypeVideo, designs[0].Type)
	assert.Equal(t, "data:video/mp4;base64,bXA=", designs[0].Data)
	assert.Equal(t, models.Design{
		ID:         "dsg-1",
		OwnerEmail: "a@x.com",
		Type:       models.DesignTypeImage,
		Data:       "data:image/png;base64,iVBORw==",
		Title:      "front.png",
		UploadedAt: "2026-10-17T09:30:00.123Z",
	}, designs[1])
}

func TestUploadDesignsNothingAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1")
	sess := f.login(t, "a@x.com", "p1")

	report, err := f.svc.UploadDesigns(ctx, sess, []UploadFile{
		{Name: "a.txt", MediaType: "text/plain", Content: strings.NewReader("a")},
	})
	require.NoError(t, err)
	assert.Zero(t, report.Uploaded)
	assert.Len(t, report.Skipped, 1)

	_, ok, err := f.store.Get(ctx, "tailorDesigns_v1")
	require.NoError(t, err)
	assert.False(t, ok, "nothing written")
}

func TestUploadDesignsRequiresFiles(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "p1")
	sess := f.login(t, "a@x.com", "p1")

	_, err := f.svc.UploadDesigns(context.Background(), sess, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("files"))
}

func TestUploadDesignsCancelled(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "p1")
	sess := f.login(t, "a@x.com", "p1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.UploadDesigns(ctx, sess, []UploadFile{pngFile("a.png")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.svc.ListDesignsForOwner(context.Background(), "a@x.com"))
}

func TestDeleteDesignScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1")
	f.register(t, "b@x.com", "p2")
	sessA := f.login(t, "a@x.com", "p1")
	sessB := f.login(t, "b@x.com", "p2")

	report, err := f.svc.UploadDesigns(ctx, sessA, []UploadFile{pngFile("a.png")})
	require.NoError(t, err)
	id := report.Designs[0].ID

	deleted, err := f.svc.DeleteDesign(ctx, sessB, id)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, f.svc.ListDesignsForOwner(ctx, "a@x.com"), 1)

	deleted, err = f.svc.DeleteDesign(ctx, sessA, id)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, f.svc.ListDesignsForOwner(ctx, "a@x.com"))
}

func TestUploadDesignsMediaAllowList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1")
	sess := f.login(t, "a@x.com", "p1")

	tests := []struct {
		mediaType string
		accepted  bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/webp", true},
		{"video/mp4", true},
		{"video/webm", true},
		{"video/ogg", true},
		{"image/gif", false},
		{"video/quicktime", false},
		{"image/svg+xml", false},
		{"not a media type", false},
	}
	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			report, err := f.svc.UploadDesigns(ctx, sess, []UploadFile{
				{Name: "file", MediaType: tt.mediaType, Size: 2, Content: strings.NewReader("ab")},
			})
			require.NoError(t, err)
			if tt.accepted {
				assert.Equal(t, 1, report.Uploaded)
				return
			}
			assert.Zero(t, report.Uploaded)
			require.Len(t, report.Skipped, 1)
			assert.ErrorIs(t, report.Skipped[0].Err, ErrUnsupportedFile)
		})
	}
}
