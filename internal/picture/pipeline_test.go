package picture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type savedAttachment struct {
	name        string
	contentType string
	data        []byte
}

type fakeAttachmentStore struct {
	saved      []savedAttachment
	failOnSave int // 1-based index of the Save call that fails; 0 = never
}

func (f *fakeAttachmentStore) Save(ctx context.Context, userID, name, contentType string, data []byte) (string, error) {
	if f.failOnSave > 0 && len(f.saved)+1 == f.failOnSave {
		return "", errors.New("attachment store unavailable")
	}
	f.saved = append(f.saved, savedAttachment{name: name, contentType: contentType, data: data})
	return "/v1/users/" + userID + "/picture/" + name, nil
}

func (f *fakeAttachmentStore) Get(ctx context.Context, userID, name string) (*storage.Attachment, error) {
	return nil, models.ErrNotFound
}

type fakeUpdater struct {
	updated *models.Picture
	err     error
}

func (f *fakeUpdater) UpdatePicture(ctx context.Context, id string, picture models.Picture) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated = &picture
	return &models.User{ID: id, Rev: "2-feedbeef", Picture: picture}, nil
}

// ---- helpers ----

func sourcePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func newTestPipeline(store *fakeAttachmentStore, updater *fakeUpdater) *Pipeline {
	return NewPipeline(store, updater,
		VariantSpec{Name: "profile", Width: 200, Height: 200},
		VariantSpec{Name: "profile-thumb", Width: 120, Height: 120},
	)
}

func pngDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

// ---- tests ----

func TestProcessStoresBothVariantsAndUpdatesDocument(t *testing.T) {
	store := &fakeAttachmentStore{}
	updater := &fakeUpdater{}
	p := newTestPipeline(store, updater)

	res, err := p.Process(context.Background(), "usr-001", sourcePNG(t, 400, 400), "image/png",
		CropRect{X: 0, Y: 0, Width: 400, Height: 400})
	require.NoError(t, err)

	require.Len(t, store.saved, 2)
	assert.Equal(t, "profile.png", store.saved[0].name)
	assert.Equal(t, "profile-thumb.png", store.saved[1].name)

	w, h := pngDims(t, store.saved[0].data)
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)
	w, h = pngDims(t, store.saved[1].data)
	assert.Equal(t, 120, w)
	assert.Equal(t, 120, h)

	require.NotNil(t, updater.updated)
	assert.Equal(t, "/v1/users/usr-001/picture/profile.png", updater.updated.Original)
	assert.Equal(t, "/v1/users/usr-001/picture/profile-thumb.png", updater.updated.Thumbnail)

	assert.Equal(t, "usr-001", res.ID)
	assert.Equal(t, "2-feedbeef", res.Rev)
	assert.Equal(t, *updater.updated, res.Picture)
}

func TestProcessCropRegionBeforeResize(t *testing.T) {
	store := &fakeAttachmentStore{}
	updater := &fakeUpdater{}
	p := newTestPipeline(store, updater)

	// A 100x100 window of a larger source still resizes to the targets.
	_, err := p.Process(context.Background(), "usr-001", sourcePNG(t, 400, 300), "image/png",
		CropRect{X: 50, Y: 50, Width: 100, Height: 100})
	require.NoError(t, err)
	require.Len(t, store.saved, 2)

	w, h := pngDims(t, store.saved[0].data)
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)
}

func TestProcessRejectsUnsupportedContentType(t *testing.T) {
	store := &fakeAttachmentStore{}
	updater := &fakeUpdater{}
	p := newTestPipeline(store, updater)

	_, err := p.Process(context.Background(), "usr-001", sourcePNG(t, 400, 400), "application/pdf",
		CropRect{Width: 400, Height: 400})
	assert.ErrorIs(t, err, models.ErrUnsupportedImageType)
	assert.Empty(t, store.saved)
	assert.Nil(t, updater.updated)
}

func TestProcessSecondStoreFailureLeavesDocumentUntouched(t *testing.T) {
	store := &fakeAttachmentStore{failOnSave: 2}
	updater := &fakeUpdater{}
	p := newTestPipeline(store, updater)

	_, err := p.Process(context.Background(), "usr-001", sourcePNG(t, 400, 400), "image/png",
		CropRect{Width: 400, Height: 400})
	require.Error(t, err)

	// Exactly the partial state the design accepts: the full-size variant is
	// stored (now orphaned), the thumbnail is not, and the document was
	// never updated.
	require.Len(t, store.saved, 1)
	assert.Equal(t, "profile.png", store.saved[0].name)
	assert.Nil(t, updater.updated)
}

func TestProcessDocumentUpdateFailureAfterBothStores(t *testing.T) {
	store := &fakeAttachmentStore{}
	updater := &fakeUpdater{err: errors.New("document store down")}
	p := newTestPipeline(store, updater)

	_, err := p.Process(context.Background(), "usr-001", sourcePNG(t, 400, 400), "image/png",
		CropRect{Width: 400, Height: 400})
	require.Error(t, err)

	// Both attachments exist but no locations were committed.
	assert.Len(t, store.saved, 2)
	assert.Nil(t, updater.updated)
}

func TestProcessGarbageStream(t *testing.T) {
	store := &fakeAttachmentStore{}
	updater := &fakeUpdater{}
	p := newTestPipeline(store, updater)

	_, err := p.Process(context.Background(), "usr-001", bytes.NewReader([]byte("not an image")), "image/png",
		CropRect{Width: 400, Height: 400})
	assert.Error(t, err)
	assert.Empty(t, store.saved)
}
