package export

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/metrics"
)

// Renderer renders settlement bills and keeps recent results in an LRU
// cache keyed by the hash of the bill's content.
type Renderer struct {
	cache    *lru.Cache[string, []byte]
	fontPath string
	log      *slog.Logger
}

// NewRenderer creates a renderer caching up to cacheSize bills. A
// cacheSize below one disables caching.
func NewRenderer(cacheSize int, fontPath string, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{fontPath: fontPath, log: logger.With("component", "export")}
	if cacheSize > 0 {
		c, err := lru.New[string, []byte](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create bill cache: %w", err)
		}
		r.cache = c
	}
	return r, nil
}

// Render returns the bill in the given format.
func (r *Renderer) Render(b *Bill, format string) ([]byte, error) {
	if format != FormatXLSX && format != FormatPDF {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	key, err := cacheKey(b, format)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if data, ok := r.cache.Get(key); ok {
			metrics.IncBillCacheHit()
			return data, nil
		}
	}

	start := time.Now()
	var data []byte
	switch format {
	case FormatXLSX:
		data, err = BuildBillXLSX(b)
	case FormatPDF:
		data, err = BuildBillPDF(b, r.fontPath)
	}
	if err != nil {
		metrics.ObserveBillExport(format, metrics.ResultError, time.Since(start))
		r.log.Error("bill render failed", "format", format, "error", err)
		return nil, err
	}
	metrics.ObserveBillExport(format, metrics.ResultSuccess, time.Since(start))
	r.log.Info("bill rendered", "format", format, "records", len(b.Records), "bytes", len(data))

	if r.cache != nil {
		r.cache.Add(key, data)
	}
	return data, nil
}

// Cached reports how many rendered bills are held.
func (r *Renderer) Cached() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}

func cacheKey(b *Bill, format string) (string, error) {
	payload, err := json.Marshal(struct {
		Format  string                    `json:"format"`
		Config  domain.BillConfig         `json:"config"`
		Records []domain.SettlementRecord `json:"records"`
	}{format, b.Config, b.Records})
	if err != nil {
		return "", fmt.Errorf("hash bill: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(payload)), nil
}
