package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	itemsFile = "items.json"
	worldFile = "world.json"
)

// ErrNotSynced is returned when no dump is available locally and the download failed.
var ErrNotSynced = errors.New("catalog not synced")

// itemRecord is one entry of the ao-bin-dumps formatted items.json.
// Weight, category and tier are optional in the dump.
type itemRecord struct {
	UniqueName     string            `json:"UniqueName"`
	LocalizedNames map[string]string `json:"LocalizedNames"`
	Weight         float64           `json:"Weight"`
	ItemCategory   string            `json:"ItemCategory"`
	Tier           int               `json:"Tier"`
}

// worldRecord is one entry of the ao-bin-dumps formatted world.json.
type worldRecord struct {
	Index      string `json:"Index"`
	UniqueName string `json:"UniqueName"`
}

// Loader keeps local copies of the metadata dumps and parses them into a Store.
type Loader struct {
	client *resty.Client
	cfg    config.Catalog
	logger *zap.Logger
	now    func() time.Time
}

// NewLoader creates a new metadata loader.
func NewLoader(cfg config.Catalog, logger *zap.Logger) *Loader {
	return &Loader{
		client: resty.New().SetTimeout(30 * time.Second),
		cfg:    cfg,
		logger: logger.Named("catalog"),
		now:    time.Now,
	}
}

// Sync refreshes stale dumps and loads them into a new Store.
func (l *Loader) Sync(ctx context.Context) (*Store, error) {
	if _, err := l.fetchStale(ctx); err != nil {
		return nil, err
	}
	items, locations, err := l.parse()
	if err != nil {
		return nil, err
	}
	return NewStore(items, locations), nil
}

// Update refreshes stale dumps and reloads store only when a newer dump was
// downloaded. It reports whether store changed.
func (l *Loader) Update(ctx context.Context, store *Store) (bool, error) {
	fetched, err := l.fetchStale(ctx)
	if err != nil || !fetched {
		return false, err
	}
	items, locations, err := l.parse()
	if err != nil {
		return false, err
	}
	store.Replace(items, locations)
	return true, nil
}

func (l *Loader) itemsPath() string { return filepath.Join(l.cfg.Dir, itemsFile) }
func (l *Loader) worldPath() string { return filepath.Join(l.cfg.Dir, worldFile) }

// fetchStale reports whether any dump was downloaded.
func (l *Loader) fetchStale(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(l.cfg.Dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	itemsFetched, err := l.downloadIfStale(ctx, l.cfg.ItemsURL, l.itemsPath())
	if err != nil {
		return false, err
	}
	worldFetched, err := l.downloadIfStale(ctx, l.cfg.WorldURL, l.worldPath())
	if err != nil {
		return false, err
	}
	return itemsFetched || worldFetched, nil
}

func (l *Loader) parse() ([]market.ItemInfo, map[string]string, error) {
	start := l.now()

	items, err := l.parseItems(l.itemsPath())
	if err != nil {
		return nil, nil, err
	}
	locations, err := parseWorld(l.worldPath())
	if err != nil {
		return nil, nil, err
	}

	l.logger.Info("Catalog loaded",
		zap.Int("items", len(items)),
		zap.Int("locations", len(locations)),
		zap.Duration("elapsed", l.now().Sub(start)),
	)
	return items, locations, nil
}

// downloadIfStale fetches url into path when the file is missing or older than
// the configured maximum age. A failed refresh of an existing file keeps the
// old copy and reports nothing fetched.
func (l *Loader) downloadIfStale(ctx context.Context, url, path string) (bool, error) {
	info, statErr := os.Stat(path)
	maxAge := time.Duration(l.cfg.MaxAgeDays) * 24 * time.Hour
	if statErr == nil && l.now().Sub(info.ModTime()) <= maxAge {
		return false, nil
	}

	log := l.logger.With(zap.String("url", url), zap.String("path", path))
	log.Info("Downloading latest metadata")

	err := l.download(ctx, url, path)
	if err == nil {
		return true, nil
	}
	if statErr == nil {
		log.Warn("Metadata refresh failed, using cached copy", zap.Error(err))
		return false, nil
	}
	return false, fmt.Errorf("%w: %s: %v", ErrNotSynced, filepath.Base(path), err)
}

func (l *Loader) download(ctx context.Context, url, path string) error {
	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("request failed with status %s", resp.Status())
	}
	if !json.Valid(resp.Body()) {
		return errors.New("response is not valid JSON")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, resp.Body(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func (l *Loader) parseItems(path string) ([]market.ItemInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse items: %w", err)
	}

	items := make([]market.ItemInfo, 0, len(records))
	for _, r := range records {
		if r.UniqueName == "" {
			continue
		}
		tier := r.Tier
		if tier == 0 {
			tier = tierFromID(r.UniqueName)
		}
		items = append(items, market.ItemInfo{
			ItemID:      r.UniqueName,
			DisplayName: l.localizedName(r.LocalizedNames),
			WeightKg:    r.Weight,
			Category:    r.ItemCategory,
			Tier:        tier,
		})
	}
	return items, nil
}

func (l *Loader) localizedName(names map[string]string) string {
	if name := names[l.cfg.PreferredLocale]; name != "" {
		return name
	}
	return names["EN-US"]
}

func parseWorld(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world: %w", err)
	}
	var records []worldRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}

	locations := make(map[string]string, len(records))
	for _, r := range records {
		locations[r.Index] = r.UniqueName
	}
	return locations, nil
}

// tierFromID reads the tier from ids shaped like "T4_BAG" or "T6_2H_BOW@2".
func tierFromID(id string) int {
	if len(id) < 3 || id[0] != 'T' {
		return 0
	}
	end := strings.IndexByte(id, '_')
	if end < 2 {
		return 0
	}
	tier, err := strconv.Atoi(id[1:end])
	if err != nil {
		return 0
	}
	return tier
}
