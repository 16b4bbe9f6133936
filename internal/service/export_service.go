package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"app/internal/entitlement"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExportTooLargeError rejects an export whose matching row count exceeds the
// hard cap. It is raised before any row data is fetched.
type ExportTooLargeError struct {
	Count int
	Cap   int
}

func (e *ExportTooLargeError) Error() string {
	return fmt.Sprintf("export matches %d entries, above the %d entry cap; narrow the date range", e.Count, e.Cap)
}

// ObjectStore archives export files and hands out short-lived download URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type s3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3Store(client *s3.Client, bucket string) ObjectStore {
	return &s3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (s *s3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("storing object %s: %w", key, err)
	}
	return nil
}

func (s *s3Store) PresignGet(ctx context.Context, key string) (string, error) {
	resp, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presigning object %s: %w", key, err)
	}
	return resp.URL, nil
}

// ExportResult describes one archived export.
type ExportResult struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	RowCount int    `json:"row_count"`
}

// ExportService produces CSV exports of a user's billables over a date range,
// archives them, and returns a download URL. Export volume is gated per month
// on the free tier.
type ExportService interface {
	ExportCSV(ctx context.Context, userID string, from, to time.Time) (*ExportResult, error)
}

type exportService struct {
	billableRepo repository.BillableRepository
	ledgerRepo   repository.LedgerRepository
	usage        UsageService
	store        ObjectStore
	hardCap      int
	batchSize    int
	logger       zerolog.Logger
}

func NewExportService(
	billableRepo repository.BillableRepository,
	ledgerRepo repository.LedgerRepository,
	usage UsageService,
	store ObjectStore,
	hardCap, batchSize int,
	logger zerolog.Logger,
) ExportService {
	return &exportService{
		billableRepo: billableRepo,
		ledgerRepo:   ledgerRepo,
		usage:        usage,
		store:        store,
		hardCap:      hardCap,
		batchSize:    batchSize,
		logger:       logger.With().Str("service", "export").Logger(),
	}
}

var csvHeader = []string{"date", "client", "client_ref", "matter", "case_number", "hours", "description"}

func (s *exportService) ExportCSV(ctx context.Context, userID string, from, to time.Time) (*ExportResult, error) {
	if to.Before(from) {
		return nil, &ValidationError{Field: "to", Message: "must not precede from"}
	}

	ledger, err := s.usage.EnsureCurrentPeriod(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("preparing usage period: %w", err)
	}

	// Size the export before touching row data; an oversized range is
	// rejected without fetching a single entry.
	count, err := s.billableRepo.CountRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sizing export: %w", err)
	}
	if count > s.hardCap {
		return nil, &ExportTooLargeError{Count: count, Cap: s.hardCap}
	}

	limit := entitlement.ExportLimit(ledger.Tier, ledger.Status)
	if limit < 0 {
		return nil, &LimitError{Resource: "exports", Upgrade: false}
	}
	ok, err := s.ledgerRepo.IncrementExports(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recording export usage: %w", err)
	}
	if !ok {
		return nil, &LimitError{Resource: "exports", Limit: limit, Upgrade: true}
	}

	result, err := s.buildAndArchive(ctx, userID, from, to)
	if err != nil {
		if derr := s.ledgerRepo.DecrementExports(ctx, userID); derr != nil {
			s.logger.Error().Err(derr).Str("user_id", userID).Msg("failed to release export count after failure")
		}
		return nil, err
	}
	return result, nil
}

func (s *exportService) buildAndArchive(ctx context.Context, userID string, from, to time.Time) (*ExportResult, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	rowCount := 0
	for offset := 0; ; offset += s.batchSize {
		batch, err := s.billableRepo.ListRange(ctx, userID, from, to, s.batchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching export batch at offset %d: %w", offset, err)
		}
		for i := range batch {
			b := &batch[i]
			record := []string{
				b.Date.Format("2006-01-02"),
				b.Client,
				deref(b.ClientRef),
				b.Matter,
				deref(b.CaseNumber),
				strconv.FormatFloat(b.Hours, 'f', 1, 64),
				b.Description,
			}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("writing csv row: %w", err)
			}
			rowCount++
		}
		if len(batch) < s.batchSize {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s.csv", userID, uuid.NewString())
	if err := s.store.Put(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return nil, fmt.Errorf("archiving export: %w", err)
	}
	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presigning export: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Int("rows", rowCount).Str("key", key).Msg("export archived")
	return &ExportResult{Key: key, URL: url, RowCount: rowCount}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
