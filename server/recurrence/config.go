package recurrence

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxExpansionOccurrences bounds how many occurrences are inspected for a
	// range without an end.
	MaxExpansionOccurrences int
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:            true,
	CacheConfig:             DefaultCacheConfig,
	MaxExpansionOccurrences: 1000,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:            false,
	MaxExpansionOccurrences: 1000,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *Cache
	if config.CacheEnabled {
		cache = NewCache(config.CacheConfig)
	}
	if config.MaxExpansionOccurrences <= 0 {
		config.MaxExpansionOccurrences = DefaultEngineConfig.MaxExpansionOccurrences
	}

	return &Engine{
		cache:  cache,
		config: config,
	}
}
