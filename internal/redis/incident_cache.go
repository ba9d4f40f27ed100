package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"beacon/internal/domain"
)

// IncidentCache keeps the unfiltered first page of the incident list hot.
// Initial page loads hit this key; every write invalidates it.
type IncidentCache struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

func NewIncidentCache(r *Redis) *IncidentCache {
	return &IncidentCache{
		client: r.Client,
		key:    "incidents:firstpage",
		ttl:    30 * time.Second,
	}
}

// GetFirstPage returns the cached page, or nil on a miss.
func (c *IncidentCache) GetFirstPage(ctx context.Context) ([]domain.Incident, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var incidents []domain.Incident
	if err := json.Unmarshal(data, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (c *IncidentCache) SetFirstPage(ctx context.Context, incidents []domain.Incident) error {
	b, err := json.Marshal(incidents)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, b, c.ttl).Err()
}

func (c *IncidentCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
