package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gearscout/backend/internal/domain/enums"
	"github.com/gearscout/backend/internal/domain/model"
	"github.com/gearscout/backend/internal/services/credits"
	"github.com/gearscout/backend/internal/services/entitlements"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNothingToExport = errors.New("nothing to export")
	ErrDependenciesNil = errors.New("export dependencies are not configured")
)

type Ledger interface {
	ExecuteWithCredits(ctx context.Context, userID int64, action enums.ActionKind, run func(context.Context) (string, error)) (credits.ExecResult, error)
}

type PlanGate interface {
	CanExport(ctx context.Context, userID int64) (entitlements.Snapshot, error)
}

type WatchlistReader interface {
	List(ctx context.Context, userID int64) ([]model.WatchlistItem, error)
}

type Uploader interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Result struct {
	Key       string
	URL       string
	Rows      int
	Cost      int
	Remaining int
}

type Dependencies struct {
	Ledger    Ledger
	Gate      PlanGate
	Watchlist WatchlistReader
	Uploader  Uploader
}

type Config struct {
	URLTTL time.Duration
}

type Service struct {
	ledger    Ledger
	gate      PlanGate
	watchlist WatchlistReader
	uploader  Uploader
	urlTTL    time.Duration
	now       func() time.Time
	newID     func() string
}

func NewService(deps Dependencies, cfg Config) *Service {
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		ledger:    deps.Ledger,
		gate:      deps.Gate,
		watchlist: deps.Watchlist,
		uploader:  deps.Uploader,
		urlTTL:    ttl,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ExportWatchlist renders the watchlist as CSV and uploads it. The plan
// gate runs before the meter, and the upload is the charged executor,
// so a locked feature or a failed upload never costs credits.
func (s *Service) ExportWatchlist(ctx context.Context, userID int64) (Result, error) {
	if userID <= 0 {
		return Result{}, ErrValidation
	}
	if s.ledger == nil || s.gate == nil || s.watchlist == nil || s.uploader == nil {
		return Result{}, ErrDependenciesNil
	}

	if _, err := s.gate.CanExport(ctx, userID); err != nil {
		return Result{}, err
	}

	items, err := s.watchlist.List(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		return Result{}, ErrNothingToExport
	}

	payload, err := renderCSV(items)
	if err != nil {
		return Result{}, err
	}

	key := fmt.Sprintf("exports/%d/watchlist-%s-%s.csv", userID, s.now().UTC().Format("20060102"), s.newID())
	execResult, err := s.ledger.ExecuteWithCredits(ctx, userID, enums.ActionExportCSV, func(runCtx context.Context) (string, error) {
		if err := s.uploader.Put(runCtx, key, bytes.NewReader(payload), int64(len(payload)), "text/csv"); err != nil {
			return "", err
		}
		return key, nil
	})
	if err != nil {
		return Result{}, err
	}

	signedURL, err := s.uploader.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Key:       key,
		URL:       signedURL,
		Rows:      len(items),
		Cost:      execResult.Cost,
		Remaining: execResult.Remaining,
	}, nil
}

func renderCSV(items []model.WatchlistItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"model_id", "title", "platform", "price_eur", "added_at"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range items {
		price := ""
		if item.PriceEUR != nil {
			price = strconv.FormatFloat(*item.PriceEUR, 'f', 2, 64)
		}
		row := []string{
			item.ModelID,
			item.Title,
			item.Platform,
			price,
			item.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
