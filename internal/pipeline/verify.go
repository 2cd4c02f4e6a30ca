package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"songplaydw/internal/catalog"
	"songplaydw/internal/storage"
	"songplaydw/pkg/errors"
)

// SourceCheck is the outcome for one configured location.
type SourceCheck struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	// Prefix is true when the location names a key prefix rather than one object.
	Prefix bool   `json:"prefix"`
	Found  bool   `json:"found"`
	Error  string `json:"error,omitempty"`
}

// Verifier checks that the configured S3 locations resolve before a load.
type Verifier struct {
	catalog *catalog.Catalog
	store   ObjectStore
	logger  *zap.Logger
}

// NewVerifier creates a source verifier
func NewVerifier(cat *catalog.Catalog, store ObjectStore, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{catalog: cat, store: store, logger: logger}
}

// Check inspects every location and returns all results. The error is non-nil
// when any location is missing or unreadable.
func (v *Verifier) Check(ctx context.Context) ([]SourceCheck, error) {
	src := v.catalog.Sources()
	targets := []SourceCheck{
		{Key: "s3.log_data", Location: src.LogData, Prefix: true},
		{Key: "s3.log_jsonpath", Location: src.LogJSONPath},
		{Key: "s3.song_data", Location: src.SongData, Prefix: true},
	}

	var missing []string
	for i := range targets {
		c := &targets[i]
		found, err := v.check(ctx, *c)
		c.Found = found
		if err != nil {
			c.Error = err.Error()
		}
		if !found {
			missing = append(missing, c.Key)
		}
		v.logger.Debug("Checked source", zap.String("key", c.Key), zap.String("location", c.Location), zap.Bool("found", found))
	}

	if len(missing) > 0 {
		return targets, errors.New(errors.ErrCodeObjectNotFound, fmt.Sprintf("%d source location(s) not found", len(missing))).
			WithContext("keys", strings.Join(missing, ", "))
	}
	return targets, nil
}

func (v *Verifier) check(ctx context.Context, c SourceCheck) (bool, error) {
	loc, err := storage.ParseLocation(c.Location)
	if err != nil {
		return false, err
	}
	if c.Prefix {
		return v.store.HasObjects(ctx, loc)
	}
	return v.store.Exists(ctx, loc)
}
