package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/finsight/internal/email"
	"github.com/zombor/finsight/internal/fees"
	"github.com/zombor/finsight/internal/model"
	"github.com/zombor/finsight/internal/ocr"
	"github.com/zombor/finsight/internal/subscriptions"
)

// ErrRecognitionFailed wraps an unsuccessful OCR pass on an upload
var ErrRecognitionFailed = errors.New("receipt recognition failed")

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Detectors groups the pure scoring engines the service calls into
type Detectors struct {
	Fees          *fees.Detector
	Subscriptions *subscriptions.Detector
	Email         *email.Classifier
}

// DefaultDetectors builds every detector with its built-in pattern banks
func DefaultDetectors() Detectors {
	return Detectors{
		Fees:          fees.NewDetector(),
		Subscriptions: subscriptions.NewDetector(),
		Email:         email.NewClassifier(),
	}
}

// Service is the caller layer between HTTP and the detectors
type Service struct {
	db          DB
	storage     Storage
	recognizer  ocr.Recognizer
	detectors   Detectors
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default detectors, ID generator and time source
func NewService(db DB, storage Storage, recognizer ocr.Recognizer) *Service {
	return NewServiceWithDeps(db, storage, recognizer, DefaultDetectors(), &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, recognizer ocr.Recognizer, detectors Detectors, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		recognizer:  recognizer,
		detectors:   detectors,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	unsafeExtChars      = regexp.MustCompile(`[^a-zA-Z0-9.]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename keeps alphanumerics, spaces, hyphens and underscores and
// truncates long phone-generated names
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + unsafeExtChars.ReplaceAllString(ext, "")
}

// ProcessReceipt stores an upload, runs OCR over it and saves the scan. When
// recognition fails the stored file is removed and the returned error wraps
// ErrRecognitionFailed.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Scan, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result := ocr.Process(ctx, s.recognizer, data, contentType)
	if !result.Success {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", result.Error,
		)
		s.removeFile(savedPath)
		return nil, fmt.Errorf("%w: %s", ErrRecognitionFailed, result.Error)
	}

	scan := &Scan{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Text:        result.Text,
		Purchase:    result.Purchase,
		CreatedAt:   now,
	}

	if err := s.db.SaveScan(scan); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving scan to database: %w", err)
	}

	return scan, nil
}

func (s *Service) removeFile(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete file", "filename", name, "error", err)
	}
}

// GetScan retrieves a scan by ID
func (s *Service) GetScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return scan, nil
}

// ListScans returns all scans
func (s *Service) ListScans() ([]*Scan, error) {
	scans, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return scans, nil
}

// DeleteScan removes a scan and its file
func (s *Service) DeleteScan(id string) error {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	s.removeFile(scan.Filename)

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan from database: %w", err)
	}
	return nil
}

// GetScanFile returns the uploaded file for a scan and its content type
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan: %w", err)
	}

	data, err := s.storage.Get(scan.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan file: %w", err)
	}
	return data, scan.ContentType, nil
}

// DetectFees scores transactions for bank fees. Fees already confirmed in the
// database and any extra existing fees are never detected again.
func (s *Service) DetectFees(transactions []model.Transaction, existing []fees.DetectedFee) ([]fees.DetectedFee, error) {
	confirmed, err := s.db.ListFees()
	if err != nil {
		return nil, fmt.Errorf("listing confirmed fees: %w", err)
	}

	detected, err := s.detectors.Fees.DetectFees(transactions, append(confirmed, existing...))
	if err != nil {
		return nil, fmt.Errorf("detecting fees: %w", err)
	}
	return detected, nil
}

// ConfirmFee persists a fee a person has accepted or corrected
func (s *Service) ConfirmFee(fee fees.DetectedFee) (fees.DetectedFee, error) {
	switch {
	case strings.TrimSpace(fee.ExpenseID) == "":
		return fees.DetectedFee{}, &model.ValidationError{Field: "expense_id", Err: model.ErrMissingField}
	case strings.TrimSpace(fee.FeeCategoryName) == "":
		return fees.DetectedFee{}, &model.ValidationError{Record: fee.ExpenseID, Field: "fee_category_name", Err: model.ErrMissingField}
	case !fee.Amount.IsPositive():
		return fees.DetectedFee{}, &model.ValidationError{Record: fee.ExpenseID, Field: "amount", Err: model.ErrInvalidAmount}
	case fee.Date.IsZero():
		return fees.DetectedFee{}, &model.ValidationError{Record: fee.ExpenseID, Field: "date", Err: model.ErrMissingField}
	case !(fee.DetectionConfidence >= 0 && fee.DetectionConfidence <= 1):
		return fees.DetectedFee{}, &model.ValidationError{Record: fee.ExpenseID, Field: "detection_confidence", Err: model.ErrInvalidConfidence}
	}

	if err := s.db.SaveFee(fee); err != nil {
		return fees.DetectedFee{}, fmt.Errorf("saving fee: %w", err)
	}
	return fee, nil
}

// ListFees returns every confirmed fee
func (s *Service) ListFees() ([]fees.DetectedFee, error) {
	confirmed, err := s.db.ListFees()
	if err != nil {
		return nil, fmt.Errorf("listing fees: %w", err)
	}
	return confirmed, nil
}

// FeeReport is the analytics and savings advice for confirmed fees
type FeeReport struct {
	Analytics       fees.Analytics        `json:"analytics"`
	Recommendations []fees.Recommendation `json:"recommendations"`
}

// FeeReport summarises confirmed fees over a trailing window
func (s *Service) FeeReport(timeRange fees.TimeRange) (*FeeReport, error) {
	confirmed, err := s.db.ListFees()
	if err != nil {
		return nil, fmt.Errorf("listing fees: %w", err)
	}

	analytics := s.detectors.Fees.Analytics(confirmed, timeRange)
	return &FeeReport{
		Analytics:       analytics,
		Recommendations: s.detectors.Fees.Recommendations(confirmed, analytics),
	}, nil
}

// DetectSubscriptions finds recurring charges in expenses
func (s *Service) DetectSubscriptions(expenses []model.Transaction) ([]subscriptions.Candidate, error) {
	candidates, err := s.detectors.Subscriptions.DetectSubscriptions(expenses)
	if err != nil {
		return nil, fmt.Errorf("detecting subscriptions: %w", err)
	}
	return candidates, nil
}

// ClassifyEmails classifies a batch of emails and extracts purchases from receipts
func (s *Service) ClassifyEmails(ctx context.Context, msgs []email.Message) []email.BatchResult {
	return s.detectors.Email.ProcessBatch(ctx, msgs)
}
