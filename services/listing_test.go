package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meli_scrooper/models"
)

type memoryStore struct {
	listings map[string]*models.StoredListing
	points   []models.PricePoint
	statuses map[uuid.UUID]string
	now      time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		listings: make(map[string]*models.StoredListing),
		statuses: make(map[uuid.UUID]string),
	}
}

func (m *memoryStore) GetListingByCode(_ context.Context, source, code string) (*models.StoredListing, error) {
	if l, ok := m.listings[source+"/"+code]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (m *memoryStore) UpsertListing(_ context.Context, l *models.StoredListing) error {
	key := l.Source + "/" + l.ListingCode
	if prev, ok := m.listings[key]; ok {
		l.TimesSeen = prev.TimesSeen + 1
	}
	cp := *l
	m.listings[key] = &cp
	return nil
}

func (m *memoryStore) FindByFingerprint(_ context.Context, fingerprint, excludeCode string) ([]models.StoredListing, error) {
	var out []models.StoredListing
	for _, l := range m.listings {
		if l.Fingerprint == fingerprint && l.ListingCode != excludeCode {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateListingStatus(_ context.Context, id uuid.UUID, status string) error {
	m.statuses[id] = status
	for _, l := range m.listings {
		if l.ID == id {
			l.Status = status
			l.LastSeen = m.now
		}
	}
	return nil
}

func (m *memoryStore) GetLatestPricePoint(_ context.Context, listingID uuid.UUID) (*models.PricePoint, error) {
	for i := len(m.points) - 1; i >= 0; i-- {
		if m.points[i].ListingID == listingID {
			pp := m.points[i]
			return &pp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) CreatePricePoint(_ context.Context, pp *models.PricePoint) error {
	pp.ID = int64(len(m.points) + 1)
	m.points = append(m.points, *pp)
	return nil
}

func record(code string, price float64) *models.ListingRecord {
	rooms := 3.0
	return &models.ListingRecord{
		Success:       true,
		Title:         "Departamento 3 ambientes",
		Price:         price,
		Currency:      models.CurrencyUSD,
		OperationType: models.OperationSale,
		Images:        []string{},
		Rooms:         &rooms,
		ListingCode:   code,
		Location:      "Av. Santa Fe 3200, Palermo",
		Coordinates:   &models.Coordinates{Latitude: -34.58, Longitude: -58.41},
		SourceURL:     "https://departamento.mercadolibre.com.ar/" + code,
		SourceSite:    models.SourceSite,
	}
}

func TestListingService_NewThenPriceChange(t *testing.T) {
	store := newMemoryStore()
	svc := NewListingService(store)
	ctx := context.Background()

	first, err := svc.Process(ctx, record("MLA100", 150000), "run-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.IsNew)
	assert.False(t, first.PriceChanged)
	require.Len(t, store.points, 1)

	stored := store.listings[models.SourceSite+"/MLA100"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.Lat)
	assert.Equal(t, -34.58, *stored.Lat)
	assert.NotEmpty(t, stored.Fingerprint)
	assert.JSONEq(t, `[]`, string(stored.Images))

	same, err := svc.Process(ctx, record("MLA100", 150000), "run-2")
	require.NoError(t, err)
	assert.False(t, same.IsNew)
	assert.False(t, same.PriceChanged)
	assert.Equal(t, first.ListingID, same.ListingID)
	assert.Len(t, store.points, 1)

	changed, err := svc.Process(ctx, record("MLA100", 139000), "run-3")
	require.NoError(t, err)
	assert.True(t, changed.PriceChanged)
	require.Len(t, store.points, 2)
	assert.Equal(t, 139000.0, store.points[1].Price)
	assert.Equal(t, "run-3", store.points[1].RunKey)
}

func TestListingService_Relisting(t *testing.T) {
	store := newMemoryStore()
	svc := NewListingService(store)
	ctx := context.Background()

	_, err := svc.Process(ctx, record("MLA100", 150000), "run-1")
	require.NoError(t, err)

	relist, err := svc.Process(ctx, record("MLA200", 145000), "run-2")
	require.NoError(t, err)
	assert.True(t, relist.IsNew)
	assert.Equal(t, []string{"MLA100"}, relist.Relisted)
}

func TestListingService_SkipsUnusableRecords(t *testing.T) {
	store := newMemoryStore()
	svc := NewListingService(store)
	ctx := context.Background()

	failed := record("MLA100", 0)
	failed.Success = false
	res, err := svc.Process(ctx, failed, "run-1")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = svc.Process(ctx, record("", 100), "run-1")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, store.listings)
}

func TestListingService_PartialRecheckMarksInactive(t *testing.T) {
	store := newMemoryStore()
	svc := NewListingService(store)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }
	res, err := svc.Process(ctx, record("MLA1", 150000), "run-1")
	require.NoError(t, err)

	later := t0.Add(30 * 24 * time.Hour)
	svc.now = func() time.Time { return later }
	store.now = later

	partial := record("MLA1", 0)
	partial.Title = ""
	partial.Success = false
	out, err := svc.Process(ctx, partial, "run-2")
	require.NoError(t, err)
	assert.Nil(t, out)

	stored := store.listings[models.SourceSite+"/MLA1"]
	assert.Equal(t, models.ListingStatusInactive, stored.Status)
	assert.Equal(t, later, stored.LastSeen)
	assert.Equal(t, models.ListingStatusInactive, store.statuses[res.ListingID])
	assert.Len(t, store.points, 1)

	// a second partial sighting is a no-op
	delete(store.statuses, res.ListingID)
	_, err = svc.Process(ctx, partial, "run-3")
	require.NoError(t, err)
	assert.Empty(t, store.statuses)

	back, err := svc.Process(ctx, record("MLA1", 150000), "run-4")
	require.NoError(t, err)
	assert.False(t, back.IsNew)
	assert.Equal(t, models.ListingStatusActive, store.listings[models.SourceSite+"/MLA1"].Status)
}

func TestListingService_PartialUnknownListing(t *testing.T) {
	store := newMemoryStore()
	svc := NewListingService(store)

	partial := record("MLA404", 0)
	partial.Success = false
	res, err := svc.Process(context.Background(), partial, "run-1")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, store.listings)
	assert.Empty(t, store.statuses)
}

func TestListingService_MarkBlocked(t *testing.T) {
	store := newMemoryStore()
	svc := NewListingService(store)
	ctx := context.Background()

	res, err := svc.Process(ctx, record("MLA100", 150000), "run-1")
	require.NoError(t, err)

	require.NoError(t, svc.MarkBlocked(ctx, models.SourceSite, "MLA100"))
	assert.Equal(t, models.ListingStatusBlocked, store.statuses[res.ListingID])

	require.NoError(t, svc.MarkBlocked(ctx, models.SourceSite, "MLA999"))
	require.NoError(t, svc.MarkBlocked(ctx, models.SourceSite, ""))
	assert.Len(t, store.statuses, 1)
}

type memoryUploader struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (u *memoryUploader) Upload(_ context.Context, key string, data io.Reader, contentType string) error {
	if u.err != nil {
		return u.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	u.objects[key] = buf.Bytes()
	u.types[key] = contentType
	return nil
}

func (u *memoryUploader) Key(listingCode, runKey, ext string) string {
	return listingCode + "/" + runKey + "." + ext
}

func TestMediaService_Archive(t *testing.T) {
	up := &memoryUploader{objects: map[string][]byte{}, types: map[string]string{}}
	svc := NewMediaService(up)

	meta := &models.ScrapeMeta{
		ScrapedAt:  time.Now(),
		Screenshot: []byte{0x89, 'P', 'N', 'G'},
		HTML:       "<html></html>",
	}
	require.NoError(t, svc.Archive(context.Background(), "MLA1", "run-1", meta))

	assert.Equal(t, "MLA1/run-1.png", meta.ScreenshotKey)
	assert.Equal(t, "MLA1/run-1.html", meta.HTMLKey)
	assert.Equal(t, "image/png", up.types["MLA1/run-1.png"])
	assert.Equal(t, "<html></html>", string(up.objects["MLA1/run-1.html"]))

	empty := &models.ScrapeMeta{}
	require.NoError(t, svc.Archive(context.Background(), "MLA1", "run-2", empty))
	assert.Empty(t, empty.ScreenshotKey)
	assert.Len(t, up.objects, 2)

	up.err = errors.New("bucket gone")
	err := svc.Archive(context.Background(), "MLA1", "run-3", &models.ScrapeMeta{HTML: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload html")
}
