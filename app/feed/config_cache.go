package feed

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/slug"
)

// SourceConfig is one catalog file: a source and the feeds it publishes.
// The file name, without .yml, is the source slug.
type SourceConfig struct {
	Slug        string       `yaml:"-"`
	Name        string       `yaml:"name"`
	URL         string       `yaml:"url"`
	Description string       `yaml:"description"`
	Feeds       []FeedConfig `yaml:"feeds"`
}

type FeedConfig struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	Enabled     bool     `yaml:"enabled"`
	Schedule    string   `yaml:"schedule"`
	AutoPublish bool     `yaml:"auto_publish"`
	LoadTags    *bool    `yaml:"load_tags"`
	Categories  []string `yaml:"categories"`
	// Aliases maps a name as it appears in the feed to the author's name
	Aliases map[string]string `yaml:"aliases"`
}

type ConfigCache struct {
	feedsDir string
	cache    map[string]*SourceConfig
	mu       sync.RWMutex
}

func NewConfigCache(feedsDir string) *ConfigCache {
	return &ConfigCache{
		feedsDir: feedsDir,
		cache:    make(map[string]*SourceConfig),
	}
}

// Run loads every *.yml file in the catalog directory. A missing directory
// is an empty catalog.
func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceSlug := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(sourceSlug)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", sourceSlug, "feeds", len(config.Feeds))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceSlug string) (*SourceConfig, error) {
	configFile := filepath.Join(cc.feedsDir, sourceSlug+".yml")

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config SourceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	config.Slug = sourceSlug

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Slug] = &config

	return &config, nil
}

func (cc *ConfigCache) GetConfig(sourceSlug string) (*SourceConfig, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[sourceSlug]
	if !ok {
		return nil, fmt.Errorf("source config with slug '%s' not found", sourceSlug)
	}
	return config, nil
}

// GetConfigs returns the loaded sources ordered by slug
func (cc *ConfigCache) GetConfigs() []*SourceConfig {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*SourceConfig, 0, len(cc.cache))
	for _, key := range slices.Sorted(maps.Keys(cc.cache)) {
		configs = append(configs, cc.cache[key])
	}
	return configs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func validateConfig(config *SourceConfig) error {
	if slug.Make(config.Slug) != config.Slug {
		return fmt.Errorf("file name %q is not a valid slug", config.Slug)
	}
	if config.Name == "" {
		return fmt.Errorf("source name is required")
	}

	seen := make(map[string]bool)
	for i, feed := range config.Feeds {
		if feed.Name == "" {
			return fmt.Errorf("feed name is required at index %d", i)
		}
		if validURL(feed.URL) == "" {
			return fmt.Errorf("feed URL %q at index %d is not valid", feed.URL, i)
		}
		if seen[feed.URL] {
			return fmt.Errorf("feed URL %q is listed twice", feed.URL)
		}
		seen[feed.URL] = true

		if feed.Schedule != "" {
			if err := ValidateSchedule(feed.Schedule); err != nil {
				return fmt.Errorf("feed %q: %w", feed.Name, err)
			}
		}
		for _, category := range feed.Categories {
			if strings.Trim(category, "/ ") == "" {
				return fmt.Errorf("feed %q has a blank category", feed.Name)
			}
		}
	}

	return nil
}

// CatalogSyncer writes catalog files into the database. Feed health and
// articles are left alone.
type CatalogSyncer struct {
	sources    database.SourceRepository
	feeds      database.FeedRepository
	categories database.CategoryRepository
	aliases    database.AliasRepository
	resolver   *AuthorResolver
}

func NewCatalogSyncer(sources database.SourceRepository, feeds database.FeedRepository,
	categories database.CategoryRepository, aliases database.AliasRepository, resolver *AuthorResolver) *CatalogSyncer {
	return &CatalogSyncer{
		sources:    sources,
		feeds:      feeds,
		categories: categories,
		aliases:    aliases,
		resolver:   resolver,
	}
}

func (s *CatalogSyncer) Sync(ctx context.Context, config *SourceConfig) error {
	source := &database.Source{
		Name:        config.Name,
		Slug:        config.Slug,
		URL:         config.URL,
		Description: config.Description,
		Data:        database.Data{},
	}
	if err := s.sources.UpsertSource(ctx, source); err != nil {
		return err
	}

	for _, feedConfig := range config.Feeds {
		if err := s.syncFeed(ctx, source, feedConfig); err != nil {
			return fmt.Errorf("failed to sync feed %s: %w", feedConfig.URL, err)
		}
	}

	slog.Debug("Source synced", "source", source.Slug, "feeds", len(config.Feeds))
	return nil
}

func (s *CatalogSyncer) syncFeed(ctx context.Context, source *database.Source, config FeedConfig) error {
	feed := &database.Feed{
		Name:        config.Name,
		SourceID:    source.ID,
		URL:         config.URL,
		Enabled:     config.Enabled,
		Schedule:    strings.TrimSpace(config.Schedule),
		AutoPublish: config.AutoPublish,
		LoadTags:    config.LoadTags == nil || *config.LoadTags,
	}
	if err := s.feeds.UpsertFeed(ctx, feed); err != nil {
		return err
	}

	categoryIDs := make([]int64, 0, len(config.Categories))
	for _, path := range config.Categories {
		category, err := s.categories.GetOrCreateCategory(ctx, path)
		if err != nil {
			return err
		}
		categoryIDs = append(categoryIDs, category.ID)
	}
	if err := s.feeds.SetFeedCategories(ctx, feed.ID, categoryIDs); err != nil {
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(config.Aliases)) {
		author, err := s.resolver.FindOrCreate(ctx, config.Aliases[name])
		if err != nil {
			return err
		}
		if author == nil {
			slog.Warn("Alias skipped", "feed", feed.URL, "name", name, "author", config.Aliases[name])
			continue
		}
		alias := &database.Alias{Name: strings.TrimSpace(name), AuthorID: author.ID, FeedID: feed.ID}
		if err := s.aliases.UpsertAlias(ctx, alias); err != nil {
			return err
		}
	}

	return nil
}
