package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/lostfound/config"
	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/utils"
)

func strp(s string) *string { return &s }

func newTestBoard(t *testing.T) *ItemBoard {
	t.Helper()
	uploads := utils.NewUploadDir(filepath.Join(t.TempDir(), "uploads"), 1<<20)
	board := NewItemBoard(Env{
		DB:      config.NewTestDB(t),
		Uploads: uploads,
	})
	require.NoError(t, board.Start(context.Background()))
	return board
}

func mustCreate(t *testing.T, b *ItemBoard, in CreateInput) *models.Item {
	t.Helper()
	item, err := b.Create(context.Background(), in)
	require.NoError(t, err)
	return item
}

func TestListAllNewestFirst(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()

	items, err := b.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	var ids []uint
	for _, title := range []string{"Keys", "Wallet", "Scarf", "Phone"} {
		it := mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp(title), Contact: strp("x")})
		ids = append(ids, it.ID)
	}

	items, err = b.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "Phone", *items[0].Title)
	for i := 1; i < len(items); i++ {
		assert.Greater(t, items[i-1].ID, items[i].ID)
	}
	assert.Equal(t, ids[3], items[0].ID)
}

func TestCreateKeepsKind(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()

	lost := mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("found it?"), Contact: strp("c")})
	found := mustCreate(t, b, CreateInput{Kind: models.KindFound, Title: strp("lost something"), Contact: strp("c")})

	got, err := b.Get(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KindLost, got.Kind)

	got, err = b.Get(ctx, found.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KindFound, got.Kind)

	_, err = b.Create(ctx, CreateInput{Kind: "stolen", Title: strp("t"), Contact: strp("c")})
	assert.Error(t, err)
}

func TestGetReturnsSubmittedFields(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()

	day, err := ParseOccurredOn("2024-03-15")
	require.NoError(t, err)
	created := mustCreate(t, b, CreateInput{
		Kind:        models.KindFound,
		Title:       strp("Blue Backpack"),
		Description: strp("Has a laptop sleeve"),
		Contact:     strp("555-1234"),
		Location:    strp("Library, 2nd floor"),
		OccurredOn:  day,
	})

	got, err := b.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Blue Backpack", *got.Title)
	assert.Equal(t, "Has a laptop sleeve", *got.Description)
	assert.Equal(t, "555-1234", *got.Contact)
	assert.Equal(t, "Library, 2nd floor", *got.Location)
	assert.Nil(t, got.PhotoFilename)

	occurred := got.OccurredAt.UTC()
	assert.Equal(t, "2024-03-15", occurred.Format("2006-01-02"))
	assert.Zero(t, occurred.Hour())
	assert.Zero(t, occurred.Minute())
	assert.Zero(t, occurred.Second())
}

func TestGetUnknownID(t *testing.T) {
	b := newTestBoard(t)
	_, err := b.Get(context.Background(), 4242)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateWithoutDateUsesNow(t *testing.T) {
	b := newTestBoard(t)
	before := time.Now().UTC().Add(-time.Second)
	it := mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("Umbrella"), Contact: strp("c")})
	after := time.Now().UTC().Add(time.Second)

	got, err := b.Get(context.Background(), it.ID)
	require.NoError(t, err)
	assert.True(t, got.OccurredAt.After(before) && got.OccurredAt.Before(after), "occurred_at %v", got.OccurredAt)
}

func TestCreateUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2023, 7, 1, 12, 30, 0, 0, time.UTC)
	b := NewItemBoard(Env{
		DB:      config.NewTestDB(t),
		Uploads: utils.NewUploadDir(t.TempDir(), 0),
		Now:     func() time.Time { return fixed },
	})
	require.NoError(t, b.Start(context.Background()))

	it := mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("Hat"), Contact: strp("c")})
	assert.True(t, it.OccurredAt.Equal(fixed))
}

func TestCreateMissingRequiredFieldIsPersistError(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()

	_, err := b.Create(ctx, CreateInput{Kind: models.KindLost, Contact: strp("555")})
	var perr *PersistError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Contains(t, strings.ToUpper(perr.Error()), "NOT NULL")

	items, err := b.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "rolled back insert leaves no row")
}

func TestCreateAllowsDuplicatesAndEmptyStrings(t *testing.T) {
	b := newTestBoard(t)
	in := CreateInput{Kind: models.KindFound, Title: strp(""), Contact: strp("")}
	first := mustCreate(t, b, in)
	second := mustCreate(t, b, in)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateStoresSanitizedPhoto(t *testing.T) {
	b := newTestBoard(t)

	it := mustCreate(t, b, CreateInput{
		Kind:    models.KindLost,
		Title:   strp("Cat"),
		Contact: strp("c"),
		Photo:   &Photo{Filename: "../../etc/passwd.png", Content: strings.NewReader("png-bytes")},
	})
	require.NotNil(t, it.PhotoFilename)
	assert.Equal(t, "etc_passwd.png", *it.PhotoFilename)
	assert.NotContains(t, *it.PhotoFilename, "/")

	data, err := os.ReadFile(filepath.Join(b.UploadRoot(), "etc_passwd.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestCreateIgnoresUnusablePhotoNames(t *testing.T) {
	b := newTestBoard(t)
	for _, name := range []string{"", "../..", "日本語"} {
		it := mustCreate(t, b, CreateInput{
			Kind:    models.KindLost,
			Title:   strp("t"),
			Contact: strp("c"),
			Photo:   &Photo{Filename: name, Content: strings.NewReader("x")},
		})
		assert.Nil(t, it.PhotoFilename, "name %q", name)
	}
	entries, err := os.ReadDir(b.UploadRoot())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateRejectsOversizePhoto(t *testing.T) {
	b := NewItemBoard(Env{
		DB:      config.NewTestDB(t),
		Uploads: utils.NewUploadDir(t.TempDir(), 3),
	})
	require.NoError(t, b.Start(context.Background()))

	_, err := b.Create(context.Background(), CreateInput{
		Kind:    models.KindFound,
		Title:   strp("t"),
		Contact: strp("c"),
		Photo:   &Photo{Filename: "big.jpg", Content: strings.NewReader("too big")},
	})
	assert.True(t, errors.Is(err, ErrPhotoTooLarge))

	items, _ := b.ListAll(context.Background())
	assert.Empty(t, items)
}

func TestCreateOversizePhotoKeepsExistingFile(t *testing.T) {
	b := NewItemBoard(Env{
		DB:      config.NewTestDB(t),
		Uploads: utils.NewUploadDir(t.TempDir(), 4),
	})
	require.NoError(t, b.Start(context.Background()))

	mustCreate(t, b, CreateInput{
		Kind: models.KindLost, Title: strp("Cat"), Contact: strp("c"),
		Photo: &Photo{Filename: "cat.jpg", Content: strings.NewReader("ok")},
	})
	_, err := b.Create(context.Background(), CreateInput{
		Kind: models.KindFound, Title: strp("Other cat"), Contact: strp("c"),
		Photo: &Photo{Filename: "cat.jpg", Content: strings.NewReader("way too big")},
	})
	require.True(t, errors.Is(err, ErrPhotoTooLarge))

	data, err := os.ReadFile(filepath.Join(b.UploadRoot(), "cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestCreateFailureRemovesNewPhoto(t *testing.T) {
	b := newTestBoard(t)
	_, err := b.Create(context.Background(), CreateInput{
		Kind:  models.KindLost,
		Title: strp("no contact"),
		Photo: &Photo{Filename: "orphan.jpg", Content: strings.NewReader("x")},
	})
	var perr *PersistError
	require.True(t, errors.As(err, &perr))

	_, statErr := os.Stat(filepath.Join(b.UploadRoot(), "orphan.jpg"))
	assert.True(t, os.IsNotExist(statErr), "photo created by a failed submission is cleaned up")
}

func TestCreateFailureKeepsOverwrittenPhoto(t *testing.T) {
	b := newTestBoard(t)
	mustCreate(t, b, CreateInput{
		Kind: models.KindLost, Title: strp("first"), Contact: strp("c"),
		Photo: &Photo{Filename: "shared.jpg", Content: strings.NewReader("one")},
	})
	_, err := b.Create(context.Background(), CreateInput{
		Kind: models.KindLost, Title: strp("second"),
		Photo: &Photo{Filename: "shared.jpg", Content: strings.NewReader("two")},
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(b.UploadRoot(), "shared.jpg"))
	assert.NoError(t, statErr)
}

func TestCreateFailureKeepsPhotoCommittedByAnotherReport(t *testing.T) {
	b := newTestBoard(t)
	// Another submission committed a row for race.jpg while this one was
	// still writing the file.
	require.NoError(t, b.db.Create(&models.Item{
		Kind: models.KindFound, Title: strp("winner"), Contact: strp("c"),
		PhotoFilename: strp("race.jpg"),
	}).Error)

	_, err := b.Create(context.Background(), CreateInput{
		Kind: models.KindLost, Title: strp("loser"),
		Photo: &Photo{Filename: "race.jpg", Content: strings.NewReader("bytes")},
	})
	var perr *PersistError
	require.True(t, errors.As(err, &perr))

	_, statErr := os.Stat(filepath.Join(b.UploadRoot(), "race.jpg"))
	assert.NoError(t, statErr, "a file referenced by a stored report is never discarded")
}

func TestSearch(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()

	red := mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("Red Umbrella"), Contact: strp("c")})
	blue := mustCreate(t, b, CreateInput{Kind: models.KindFound, Title: strp("Blue Umbrella"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("Wallet"), Description: strp("brown LEATHER"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindFound, Title: strp("Keys"), Location: strp("Central Station"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindFound, Title: strp("Gloves"), Contact: strp("umbrella-dealer@example.com")})

	items, err := b.Search(ctx, "umbrella")
	require.NoError(t, err)
	require.Len(t, items, 2, "contact is not searched")
	assert.Equal(t, blue.ID, items[0].ID)
	assert.Equal(t, red.ID, items[1].ID)

	items, err = b.Search(ctx, "red")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, red.ID, items[0].ID)

	items, err = b.Search(ctx, "leather")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wallet", *items[0].Title)

	items, err = b.Search(ctx, "  STATION ")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Keys", *items[0].Title)

	items, err = b.Search(ctx, "bicycle")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchBlankQueryReturnsNothing(t *testing.T) {
	b := newTestBoard(t)
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("Anything"), Contact: strp("c")})

	for _, q := range []string{"", "   ", "\t\n"} {
		items, err := b.Search(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items, "query %q", q)
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	b := newTestBoard(t)
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("100% wool scarf"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("1000 yen note"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("snake_case mug"), Contact: strp("c")})

	items, err := b.Search(context.Background(), "100%")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100% wool scarf", *items[0].Title)

	items, err = b.Search(context.Background(), "e_c")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "snake_case mug", *items[0].Title)
}

func TestStats(t *testing.T) {
	b := newTestBoard(t)
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("a"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("b"), Contact: strp("c")})
	mustCreate(t, b, CreateInput{Kind: models.KindFound, Title: strp("c"), Contact: strp("c")})

	s, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Lost: 2, Found: 1, Total: 3}, s)
}

func TestParseOccurredOn(t *testing.T) {
	got, err := ParseOccurredOn("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseOccurredOn("2024-3-5")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *got)

	for _, bad := range []string{"15/03/2024", "2024-13-01", "yesterday", "2024-03-15T10:00:00"} {
		_, err := ParseOccurredOn(bad)
		assert.True(t, errors.Is(err, ErrInvalidDate), "input %q", bad)
	}
}

func TestNotStarted(t *testing.T) {
	b := NewItemBoard(Env{})
	_, err := b.ListAll(context.Background())
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) GetBytes(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok
}

func (m *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) {
	b, _ := json.Marshal(v)
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
}

func (m *memCache) InvalidateByPrefix(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
}

func TestCacheIsInvalidatedOnCreate(t *testing.T) {
	cache := newMemCache()
	b := NewItemBoard(Env{
		DB:      config.NewTestDB(t),
		Uploads: utils.NewUploadDir(t.TempDir(), 0),
		Cache:   cache,
	})
	require.NoError(t, b.Start(context.Background()))
	ctx := context.Background()

	first := mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("one"), Contact: strp("c")})
	items, err := b.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	_, cached := cache.GetBytes(ctx, listCacheKey)
	assert.True(t, cached)

	mustCreate(t, b, CreateInput{Kind: models.KindLost, Title: strp("two"), Contact: strp("c")})
	_, cached = cache.GetBytes(ctx, listCacheKey)
	assert.False(t, cached)

	items, err = b.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	got, err := b.Get(ctx, first.ID)
	require.NoError(t, err)
	hit, err := b.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *got.Title, *hit.Title)
	assert.True(t, got.OccurredAt.Equal(hit.OccurredAt))
}

func TestSweepOrphanPhotos(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()
	mustCreate(t, b, CreateInput{
		Kind: models.KindFound, Title: strp("Scarf"), Contact: strp("c"),
		Photo: &Photo{Filename: "scarf.jpg", Content: strings.NewReader("s")},
	})

	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{"stale.jpg", "fresh.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(b.UploadRoot(), name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Chtimes(filepath.Join(b.UploadRoot(), "stale.jpg"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(b.UploadRoot(), "scarf.jpg"), old, old))

	removed, err := b.SweepOrphanPhotos(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(b.UploadRoot(), "stale.jpg"))
	assert.True(t, os.IsNotExist(err))
	for _, kept := range []string{"scarf.jpg", "fresh.jpg"} {
		_, err = os.Stat(filepath.Join(b.UploadRoot(), kept))
		assert.NoError(t, err, kept)
	}
}
