package service

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// ReportCache holds recently generated risk reports so the serving layer can
// re-render them, including strategy-filtered views, without recomputation.
// It is the explicit owner of the "last computed results" state; nothing in
// the engine caches anything.
type ReportCache struct {
	entries *lru.Cache
	ttl     time.Duration

	logger  *logrus.Logger
	stats   ReportCacheStats
	statsMu sync.RWMutex
}

// ReportCacheStats represents cache performance counters.
type ReportCacheStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Expired   int64     `json:"expired"`
	Stored    int64     `json:"stored"`
	LastReset time.Time `json:"last_reset"`
}

type reportEntry struct {
	report    *domain.RiskReport
	expiresAt time.Time
}

// NewReportCache creates a report cache bounded to maxEntries reports, each
// expiring ttl after insertion.
func NewReportCache(maxEntries int, ttl time.Duration, logger *logrus.Logger) (*ReportCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	entries, err := lru.New(maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}

	return &ReportCache{
		entries: entries,
		ttl:     ttl,
		logger:  logger,
		stats:   ReportCacheStats{LastReset: time.Now()},
	}, nil
}

// Put stores a report under its id.
func (c *ReportCache) Put(report *domain.RiskReport) {
	c.entries.Add(report.ID, &reportEntry{
		report:    report,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.incrementStat(func(s *ReportCacheStats) { s.Stored++ })

	c.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"model_id":  report.ModelID,
	}).Debug("Cached risk report")
}

// Get retrieves a report by id, treating expired entries as absent.
func (c *ReportCache) Get(id string) (*domain.RiskReport, bool) {
	value, ok := c.entries.Get(id)
	if !ok {
		c.incrementStat(func(s *ReportCacheStats) { s.Misses++ })
		return nil, false
	}

	entry := value.(*reportEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Remove(id)
		c.incrementStat(func(s *ReportCacheStats) { s.Expired++; s.Misses++ })
		c.logger.WithField("report_id", id).Debug("Report cache entry expired")
		return nil, false
	}

	c.incrementStat(func(s *ReportCacheStats) { s.Hits++ })
	return entry.report, true
}

// Invalidate removes a report from the cache.
func (c *ReportCache) Invalidate(id string) {
	c.entries.Remove(id)
}

// Len returns the number of cached entries, counting not-yet-evicted
// expired entries.
func (c *ReportCache) Len() int {
	return c.entries.Len()
}

// Stats returns a copy of the cache performance counters.
func (c *ReportCache) Stats() ReportCacheStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func (c *ReportCache) incrementStat(update func(*ReportCacheStats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	update(&c.stats)
}
