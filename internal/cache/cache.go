// Package cache holds reference data (projects and tasks) per organization so
// surfaces can resolve human-readable names without a network round trip on
// every render. Entries expire by age; an expired entry reads as absent, never
// as an error.
package cache

import (
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/brimstone/logger"
)

var log = logger.New()

// TTLs differ by surface: the selection screen tolerates older data than the
// tile's quick name lookup.
const (
	SelectionTTL = 5 * time.Minute
	LookupTTL    = time.Minute
)

type record struct {
	Projects  []api.Project `json:"projects"`
	Tasks     []api.Task    `json:"tasks"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Cache reads and writes one record per organization in the cache partition.
// Instances share the stored data; only the freshness window differs.
type Cache struct {
	kv  store.KV
	ttl time.Duration
	now func() time.Time
}

func New(kv store.KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func key(orgID string) string {
	return "refdata:" + orgID
}

// Get returns the cached reference data for an organization, or ok=false when
// nothing was stored or the record aged out.
func (c *Cache) Get(orgID string) (projects []api.Project, tasks []api.Task, ok bool) {
	var rec record
	found, err := c.kv.GetJSON(store.PartitionCache, key(orgID), &rec)
	if err != nil {
		log.Debug("reference data read failed",
			log.Field("org", orgID),
			log.Field("err", err),
		)
		return nil, nil, false
	}
	if !found {
		return nil, nil, false
	}
	if c.now().Sub(rec.FetchedAt) > c.ttl {
		return nil, nil, false
	}
	return rec.Projects, rec.Tasks, true
}

// Put overwrites the organization's record and resets its age.
func (c *Cache) Put(orgID string, projects []api.Project, tasks []api.Task) error {
	return c.kv.SetJSON(store.PartitionCache, key(orgID), record{
		Projects:  projects,
		Tasks:     tasks,
		FetchedAt: c.now(),
	})
}

// ResolveNames maps project/task ids to display names using cached data only.
// Nil results mean the cache is absent or the ids are unknown; callers decide
// whether to fetch through.
func (c *Cache) ResolveNames(orgID string, projectID, taskID *string) (projectName, taskName *string) {
	projects, tasks, ok := c.Get(orgID)
	if !ok {
		return nil, nil
	}
	if projectID != nil {
		for i := range projects {
			if projects[i].ID == *projectID {
				projectName = &projects[i].Name
				break
			}
		}
	}
	if taskID != nil {
		for i := range tasks {
			if tasks[i].ID == *taskID {
				taskName = &tasks[i].Name
				break
			}
		}
	}
	return projectName, taskName
}
