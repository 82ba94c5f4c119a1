package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meli_scrooper/config"
	"meli_scrooper/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store := newTestStore(t)

	run := &models.ScrapeRun{
		RunKey:    "run-1",
		SiteID:    "mercadolibre",
		URL:       "https://inmueble.mercadolibre.com.ar/MLA-1",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	id, err := store.CreateRun(run)
	require.NoError(t, err)
	run.ID = id

	require.NoError(t, store.Log(models.ScrapeLog{RunID: id, Level: models.LogLevelInfo, Message: "navigating", SiteID: "mercadolibre"}))
	require.NoError(t, store.Log(models.ScrapeLog{
		RunID:     id,
		Level:     models.LogLevelWarn,
		Component: "orchestrator",
		SiteID:    "mercadolibre",
		Message:   "challenge page",
		Fields:    map[string]string{"url": run.URL},
	}))

	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusBlocked
	run.Error = "blocked"
	require.NoError(t, store.UpdateRun(run))

	got, err := store.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RunStatusBlocked, got.Status)
	assert.Equal(t, "blocked", got.Error)
	assert.NotNil(t, got.FinishedAt)

	logs, err := store.GetLogs(id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogLevelWarn, logs[1].Level)
	assert.Equal(t, "orchestrator", logs[1].Component)
	assert.Equal(t, run.URL, logs[1].Fields["url"])
	assert.Empty(t, logs[0].Component)
	assert.Nil(t, logs[0].Fields)

	missing, err := store.GetRun(999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_SaveResult(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateRun(&models.ScrapeRun{RunKey: "run-2", StartedAt: time.Now(), Status: models.RunStatusRunning})
	require.NoError(t, err)

	out := models.ScrapeOutput{
		Result: models.Result{Listing: &models.ListingRecord{
			Success:     true,
			Title:       "Casa en Tigre",
			Price:       250000,
			Currency:    models.CurrencyUSD,
			Images:      []string{"https://http2.mlstatic.com/a-O.webp"},
			ListingCode: "MLA123",
			SourceURL:   "https://casa.mercadolibre.com.ar/MLA-123",
			SourceSite:  models.SourceSite,
		}},
		Meta: models.ScrapeMeta{ScrapedAt: time.Now(), ItemID: "MLA123"},
	}
	require.NoError(t, store.SaveResult(id, out))

	payload, err := store.GetResultPayload(id)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "Casa en Tigre", doc["title"])
	assert.Equal(t, "MLA123", doc["listing_code"])
	meta, ok := doc["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), meta["imagesCount"])
}

func TestSQLiteStore_Commands(t *testing.T) {
	store := newTestStore(t)

	_, err := store.EnqueueCommand(models.CmdPause, nil)
	require.NoError(t, err)
	_, err = store.EnqueueCommand(models.CmdScrapeURL, &models.CommandParams{
		URL:               "https://inmueble.mercadolibre.com.ar/MLA-9",
		IncludeScreenshot: true,
	})
	require.NoError(t, err)

	cmds, err := store.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, models.CmdPause, cmds[0].Command)

	params, err := ParseCommandParams(&cmds[0])
	require.NoError(t, err)
	assert.Empty(t, params.URL)

	params, err = ParseCommandParams(&cmds[1])
	require.NoError(t, err)
	assert.Equal(t, "https://inmueble.mercadolibre.com.ar/MLA-9", params.URL)
	assert.True(t, params.IncludeScreenshot)

	require.NoError(t, store.MarkCommandProcessed(cmds[0].ID))
	cmds, err = store.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, models.CmdScrapeURL, cmds[0].Command)
}

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "meli/MLA123/abc.png", ArtifactKey("meli", "MLA123", "abc", ".png"))
	assert.Equal(t, "meli/unknown/abc.html", ArtifactKey("meli", "", "abc", "html"))
	assert.Equal(t, "MLA1/k.png", ArtifactKey("", "MLA1", "k", "png"))
}

func TestS3Uploader_PublicURL(t *testing.T) {
	aws := &S3Uploader{cfg: config.S3Config{Bucket: "captures", Region: "sa-east-1"}}
	assert.Equal(t, "https://captures.s3.sa-east-1.amazonaws.com/meli/MLA1/k.png", aws.PublicURL("meli/MLA1/k.png"))

	minio := &S3Uploader{cfg: config.S3Config{Bucket: "captures", Endpoint: "http://localhost:9000/"}}
	assert.Equal(t, "http://localhost:9000/captures/a.html", minio.PublicURL("a.html"))

	spaces := &S3Uploader{cfg: config.S3Config{Bucket: "captures", Endpoint: "https://nyc3.digitaloceanspaces.com"}}
	assert.Equal(t, "https://captures.nyc3.digitaloceanspaces.com/a.html", spaces.PublicURL("a.html"))
}
