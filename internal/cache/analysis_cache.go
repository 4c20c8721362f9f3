package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	analysisKeyPrefix = "replenish:analysis"
	scanBatchSize     = 100
)

// Analysis is the cached outcome of running one counts file.
type Analysis struct {
	Dataset   string                  `json:"dataset"`
	Decisions []domain.DecisionRecord `json:"decisions"`
	Report    domain.ValidationReport `json:"report"`
}

// AnalysisParams are the inputs besides file content that change results.
type AnalysisParams struct {
	PlanningWindow   int
	DefaultLeadWeeks float64
	EvaluationDate   string
	CalendarVersion  string
	PurchaseOrders   []byte
}

type AnalysisCache interface {
	Get(ctx context.Context, key string) (*Analysis, bool, error)
	Set(ctx context.Context, key string, analysis *Analysis) error
	InvalidateAll(ctx context.Context) error
}

type redisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalysisCache struct{}

func NewAnalysisCache(cfg config.CacheConfig) (AnalysisCache, error) {
	if !cfg.Enabled {
		return &noopAnalysisCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisAnalysisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopAnalysisCache() AnalysisCache {
	return &noopAnalysisCache{}
}

func (c *redisAnalysisCache) Get(ctx context.Context, key string) (*Analysis, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, false, fmt.Errorf("decode analysis cache: %w", err)
	}
	return &analysis, true, nil
}

func (c *redisAnalysisCache) Set(ctx context.Context, key string, analysis *Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAnalysisCache) InvalidateAll(ctx context.Context) error {
	removed, err := unlinkPrefix(ctx, c.client, analysisKeyPrefix, scanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("analysis cache invalidated")
	return nil
}

func (n *noopAnalysisCache) Get(ctx context.Context, key string) (*Analysis, bool, error) {
	return nil, false, nil
}

func (n *noopAnalysisCache) Set(ctx context.Context, key string, analysis *Analysis) error {
	return nil
}

func (n *noopAnalysisCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// BuildAnalysisKey hashes the file content together with every parameter
// that changes the derived output.
func BuildAnalysisKey(content []byte, params AnalysisParams) string {
	h := sha1.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte("window=" + strconv.Itoa(params.PlanningWindow)))
	h.Write([]byte("|lead=" + strconv.FormatFloat(params.DefaultLeadWeeks, 'f', -1, 64)))
	h.Write([]byte("|today=" + params.EvaluationDate))
	h.Write([]byte("|calendar=" + params.CalendarVersion))
	h.Write([]byte{0})
	h.Write(params.PurchaseOrders)
	return fmt.Sprintf("%s:%s", analysisKeyPrefix, hex.EncodeToString(h.Sum(nil)))
}
