package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/lostfound/config"
	"github.com/cppla/lostfound/models"
	"github.com/cppla/lostfound/utils"
)

const (
	listCacheKey      = "cache:items:list"
	detailCachePrefix = "cache:item:detail:"
)

var errNotStarted = errors.New("item board not started")

// Env bundles the collaborators an ItemBoard runs against. Zero fields are
// filled from Config.
type Env struct {
	Config  config.AppConfig
	DB      *gorm.DB         // opened by Start when nil
	Uploads *utils.UploadDir // built from Config.UploadDir when nil
	Cache   utils.Cache      // NopCache when nil
	Now     func() time.Time // time.Now when nil
}

// ItemBoard owns every report record and the upload directory holding their photos.
type ItemBoard struct {
	cfg     config.AppConfig
	db      *gorm.DB
	uploads *utils.UploadDir
	cache   utils.Cache
	now     func() time.Time
}

// NewItemBoard builds a board from env. Call Start before serving.
func NewItemBoard(env Env) *ItemBoard {
	b := &ItemBoard{
		cfg:     env.Config,
		db:      env.DB,
		uploads: env.Uploads,
		cache:   env.Cache,
		now:     env.Now,
	}
	if b.uploads == nil {
		b.uploads = utils.NewUploadDir(env.Config.UploadDir, env.Config.MaxUploadBytes())
	}
	if b.cache == nil {
		b.cache = utils.NopCache{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Start opens the store if needed, prepares the upload directory and makes
// sure the item table exists. A schema failure is logged, not returned: the
// process keeps serving and store calls fail until the table appears.
func (b *ItemBoard) Start(ctx context.Context) error {
	if b.db == nil {
		db, err := config.OpenDatabase(b.cfg)
		if err != nil {
			return err
		}
		b.db = db
	}
	if err := b.uploads.Ensure(); err != nil {
		return fmt.Errorf("prepare upload dir: %w", err)
	}
	if err := config.EnsureSchema(b.db.WithContext(ctx)); err != nil {
		utils.Sugar.Warnw("could not create tables", "error", err)
	} else {
		utils.Sugar.Info("database tables ready")
	}
	return nil
}

// Close releases the database connection pool.
func (b *ItemBoard) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UploadRoot is the directory photos are served from.
func (b *ItemBoard) UploadRoot() string {
	return b.uploads.Root
}

// ListAll returns every report, newest first.
func (b *ItemBoard) ListAll(ctx context.Context) ([]models.Item, error) {
	if b.db == nil {
		return nil, errNotStarted
	}
	if raw, ok := b.cache.GetBytes(ctx, listCacheKey); ok {
		var cached []models.Item
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	items := []models.Item{}
	if err := b.db.WithContext(ctx).Order("id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	b.cache.SetJSON(ctx, listCacheKey, items, 0)
	return items, nil
}

// Create stores the optional photo, then inserts the report in one
// transaction. A failed insert returns *PersistError and removes a photo file
// this call created, as long as no stored report references that name.
func (b *ItemBoard) Create(ctx context.Context, in CreateInput) (*models.Item, error) {
	if b.db == nil {
		return nil, errNotStarted
	}
	if _, err := models.ParseKind(string(in.Kind)); err != nil {
		return nil, err
	}

	var photoName *string
	createdFile := false
	if in.Photo != nil && in.Photo.Filename != "" {
		if name := utils.SecureFilename(in.Photo.Filename); name != "" {
			created, err := b.uploads.Save(name, in.Photo.Content)
			if err != nil {
				if errors.Is(err, utils.ErrFileTooLarge) {
					return nil, ErrPhotoTooLarge
				}
				return nil, fmt.Errorf("store photo: %w", err)
			}
			photoName = &name
			createdFile = created
		}
	}

	occurredAt := b.now().UTC()
	if in.OccurredOn != nil {
		occurredAt = *in.OccurredOn
	}

	item := &models.Item{
		Kind:          in.Kind,
		Title:         in.Title,
		Description:   in.Description,
		Contact:       in.Contact,
		Location:      in.Location,
		OccurredAt:    occurredAt,
		PhotoFilename: photoName,
	}

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(item).Error
	})
	if err != nil {
		if createdFile {
			b.discardPhoto(ctx, *photoName)
		}
		return nil, &PersistError{Err: err}
	}

	b.cache.InvalidateByPrefix(ctx, listCacheKey)
	return item, nil
}

// discardPhoto removes a photo written for a report that was never stored,
// unless a concurrent submission has since committed a row using the same name.
func (b *ItemBoard) discardPhoto(ctx context.Context, name string) {
	var refs int64
	err := b.db.WithContext(ctx).Model(&models.Item{}).
		Where("image_filename = ?", name).
		Count(&refs).Error
	if err != nil {
		utils.Sugar.Warnw("orphaned upload left behind", "file", name, "error", err)
		return
	}
	if refs > 0 {
		return
	}
	if err := b.uploads.Remove(name); err != nil {
		utils.Sugar.Warnw("orphaned upload left behind", "file", name, "error", err)
	}
}

// Search returns reports whose title, description or location contains q,
// ignoring case, newest first. A blank q matches nothing.
func (b *ItemBoard) Search(ctx context.Context, q string) ([]models.Item, error) {
	if b.db == nil {
		return nil, errNotStarted
	}
	items := []models.Item{}
	q = strings.TrimSpace(q)
	if q == "" {
		return items, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	err := b.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(location) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern).
		Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}

// Get loads one report by id, or ErrNotFound.
func (b *ItemBoard) Get(ctx context.Context, id uint) (*models.Item, error) {
	if b.db == nil {
		return nil, errNotStarted
	}
	key := detailCachePrefix + strconv.FormatUint(uint64(id), 10)
	if raw, ok := b.cache.GetBytes(ctx, key); ok {
		var cached models.Item
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	var item models.Item
	if err := b.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	// Reports never change, so a detail entry cannot go stale.
	b.cache.SetJSON(ctx, key, item, 0)
	return &item, nil
}

// Stats holds report counts per kind.
type Stats struct {
	Lost  int64 `json:"lost"`
	Found int64 `json:"found"`
	Total int64 `json:"total"`
}

// Stats counts reports per kind.
func (b *ItemBoard) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if b.db == nil {
		return s, errNotStarted
	}
	var rows []struct {
		Kind string
		N    int64
	}
	err := b.db.WithContext(ctx).Model(&models.Item{}).
		Select("item_type AS kind, COUNT(*) AS n").
		Group("item_type").
		Scan(&rows).Error
	if err != nil {
		return s, fmt.Errorf("count items: %w", err)
	}
	for _, r := range rows {
		switch models.Kind(r.Kind) {
		case models.KindLost:
			s.Lost = r.N
		case models.KindFound:
			s.Found = r.N
		}
		s.Total += r.N
	}
	return s, nil
}

// SweepOrphanPhotos removes files in the upload directory that no report
// references and that are older than minAge. The age guard keeps a photo
// whose report is still being inserted.
func (b *ItemBoard) SweepOrphanPhotos(ctx context.Context, minAge time.Duration) (int, error) {
	if b.db == nil {
		return 0, errNotStarted
	}
	files, err := b.uploads.List()
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}
	if len(files) == 0 {
		return 0, nil
	}

	var names []string
	err = b.db.WithContext(ctx).Model(&models.Item{}).
		Where("image_filename IS NOT NULL").
		Distinct().
		Pluck("image_filename", &names).Error
	if err != nil {
		return 0, fmt.Errorf("load photo references: %w", err)
	}
	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	cutoff := b.now().Add(-minAge)
	removed := 0
	for _, f := range files {
		if _, ok := referenced[f.Name]; ok || f.ModTime.After(cutoff) {
			continue
		}
		if err := b.uploads.Remove(f.Name); err != nil {
			utils.Sugar.Warnw("could not remove orphaned upload", "file", f.Name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// escapeLike makes q match literally inside a LIKE pattern using '!' as escape.
func escapeLike(q string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(q)
}
