package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/types"
)

// CacheEntryRepo stores completed generations keyed by prompt fingerprint.
// Creation is idempotent: once a key has takes, later writes never replace
// them.
type CacheEntryRepo interface {
	Create(ctx context.Context, key, promptText, mode string, takes []types.Take) error
	Get(ctx context.Context, key string) (*types.CacheEntry, error)
	List(ctx context.Context) ([]types.CacheEntry, error)
}

type cacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheEntryRepo(db *gorm.DB, log *logger.Logger) CacheEntryRepo {
	return &cacheEntryRepo{db: db, log: log.With("repo", "CacheEntryRepo")}
}

func (r *cacheEntryRepo) Create(ctx context.Context, key, promptText, mode string, takes []types.Take) error {
	raw, err := json.Marshal(takes)
	if err != nil {
		return fmt.Errorf("marshal takes: %w", err)
	}
	entry := types.CacheEntry{
		Key:        key,
		PromptText: promptText,
		Mode:       mode,
		Takes:      raw,
	}
	// DoNothing keeps the first completed take set for a key authoritative.
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return fmt.Errorf("create cache entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		r.log.Debug("Cache entry already exists, keeping original", "key", key)
	}
	return nil
}

func (r *cacheEntryRepo) Get(ctx context.Context, key string) (*types.CacheEntry, error) {
	var entry types.CacheEntry
	err := r.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return &entry, nil
}

func (r *cacheEntryRepo) List(ctx context.Context) ([]types.CacheEntry, error) {
	var entries []types.CacheEntry
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return entries, nil
}

// DecodeTakes unpacks the stored take summaries of an entry.
func DecodeTakes(entry *types.CacheEntry) ([]types.Take, error) {
	var takes []types.Take
	if err := json.Unmarshal(entry.Takes, &takes); err != nil {
		return nil, fmt.Errorf("decode takes: %w", err)
	}
	return takes, nil
}
