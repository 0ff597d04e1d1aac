package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlas_scraper/models"
)

func newTestCache(t *testing.T) *FileCache {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	c, err := NewFileCache(t.TempDir(), log)
	require.NoError(t, err)
	return c
}

func sampleAnalysis() *models.Analysis {
	return &models.Analysis{
		PropertyRecord: models.PropertyRecord{
			Address: "Calle Mayor 10, Madrid",
			City:    "Madrid",
			Price:   350000,
			Source: models.Source{
				Platform: models.PlatformIdealista,
				URL:      "https://www.idealista.com/inmueble/12345/",
			},
		},
	}
}

func TestKeyIsStable(t *testing.T) {
	c := newTestCache(t)
	url := "https://www.idealista.com/inmueble/12345/"
	assert.Equal(t, c.Key(models.PlatformIdealista, url), c.Key(models.PlatformIdealista, url))
	assert.NotEqual(t, c.Key(models.PlatformIdealista, url), c.Key(models.PlatformFotocasa, url))
	assert.Len(t, c.Key(models.PlatformIdealista, url), 64)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	url := "https://www.idealista.com/inmueble/12345/"

	c.Put(models.PlatformIdealista, url, sampleAnalysis(), time.Hour)

	got, ok := c.Get(models.PlatformIdealista, url)
	require.True(t, ok)
	assert.Equal(t, "Madrid", got.City)
	assert.Equal(t, float64(350000), got.Price)
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := newTestCache(t)
	url := "https://www.fotocasa.es/vivienda/9"

	c.Put(models.PlatformFotocasa, url, sampleAnalysis(), time.Millisecond)
	c.now = func() time.Time { return time.Now().Add(10 * time.Millisecond) }

	_, ok := c.Get(models.PlatformFotocasa, url)
	assert.False(t, ok)
}

func TestCorruptEntryIsMissAndRemoved(t *testing.T) {
	c := newTestCache(t)
	url := "https://www.habitaclia.com/vivienda-1.htm"

	path := filepath.Join(c.dir, c.Key(models.PlatformHabitaclia, url)+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, ok := c.Get(models.PlatformHabitaclia, url)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPurgeRemovesOnlyExpired(t *testing.T) {
	c := newTestCache(t)

	c.Put(models.PlatformIdealista, "https://www.idealista.com/inmueble/1/", sampleAnalysis(), time.Millisecond)
	c.Put(models.PlatformIdealista, "https://www.idealista.com/inmueble/2/", sampleAnalysis(), time.Hour)

	c.now = func() time.Time { return time.Now().Add(10 * time.Millisecond) }
	removed := c.Purge()
	assert.Equal(t, 1, removed)

	_, ok := c.Get(models.PlatformIdealista, "https://www.idealista.com/inmueble/2/")
	assert.True(t, ok)
}
