package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/daily-sales/internal/extraction"
)

// AttachmentURLPrefix is the path attachments are served under
const AttachmentURLPrefix = "/api/attachments/"

// maxConcurrentExtractions bounds in-flight model calls for one multi-file capture
const maxConcurrentExtractions = 4

var (
	// ErrNoItems is returned when a capture produced no line items
	ErrNoItems = errors.New("no items found in capture")
	// ErrItemIndex is returned for an item position outside the report
	ErrItemIndex = fmt.Errorf("%w: item index out of range", ErrInvalidChanges)
)

// IDGenerator generates unique IDs for reports and attachments
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Header holds the fields a new report starts with. Empty date, time and
// timezone default to the server's current local values.
type Header struct {
	DateLocal    string `json:"date_local"`
	TimeLocal    string `json:"time_local"`
	Timezone     string `json:"timezone"`
	StoreName    string `json:"store_name"`
	SalesRepName string `json:"sales_rep_name"`
}

// SessionState is what the editing surface renders
type SessionState struct {
	Report  DailyReport `json:"report"`
	CanUndo bool        `json:"can_undo"`
	CanRedo bool        `json:"can_redo"`
}

// SaveResult is a persisted report plus any non-fatal warnings
type SaveResult struct {
	Report   DailyReport `json:"report"`
	Warnings []string    `json:"warnings"`
}

// Upload is one captured file
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ItemEdit is a manual edit of one item. Nil fields are left untouched.
type ItemEdit struct {
	SKU         *string          `json:"sku,omitempty"`
	ProductName *string          `json:"product_name,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// Service handles report editing sessions, capture and persistence.
// Each open report has its own Engine; all engines are guarded by one mutex.
// Extraction runs outside the lock and commits through a single Update.
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	engineOpts  []EngineOption

	mu       sync.Mutex
	sessions map[string]*Engine
}

// NewService creates a new Service with uuid IDs and the wall clock
func NewService(db DB, extractor extraction.Extractor, storage Storage, opts ...EngineOption) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{}, &defaultTimeSource{}, opts...)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource, opts ...EngineOption) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		engineOpts:  opts,
		sessions:    make(map[string]*Engine),
	}
}

// session returns the open engine for id, loading the report from the
// database on first access. Callers must hold s.mu.
func (s *Service) session(id string) (*Engine, error) {
	if eng, ok := s.sessions[id]; ok {
		return eng, nil
	}
	stored, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("loading report: %w", err)
	}
	eng := NewEngine(s.engineOpts...)
	eng.Init(*stored)
	s.sessions[id] = eng
	return eng, nil
}

func stateOf(eng *Engine) *SessionState {
	r, _ := eng.State()
	return &SessionState{Report: r, CanUndo: eng.CanUndo(), CanRedo: eng.CanRedo()}
}

// NewReport starts an editing session for a fresh report
func (s *Service) NewReport(h Header) (*SessionState, error) {
	now := s.timeSource.Now()
	if h.DateLocal == "" {
		h.DateLocal = now.Format("2006-01-02")
	}
	if h.TimeLocal == "" {
		h.TimeLocal = now.Format("15:04")
	}
	if h.Timezone == "" && now.Location() != time.Local {
		h.Timezone = now.Location().String()
	}
	if h.Timezone != "" {
		if _, err := time.LoadLocation(h.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidChanges, h.Timezone)
		}
	}

	r := derive(DailyReport{
		ID:           s.idGenerator.Generate(),
		DateLocal:    strings.TrimSpace(h.DateLocal),
		TimeLocal:    strings.TrimSpace(h.TimeLocal),
		Timezone:     h.Timezone,
		StoreName:    strings.TrimSpace(h.StoreName),
		SalesRepName: strings.TrimSpace(h.SalesRepName),
		Items:        []SalesItem{},
		Sources:      []Source{},
		Attachments:  []Attachment{},
		CreatedAt:    now,
	})

	eng := NewEngine(s.engineOpts...)
	eng.Init(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[r.ID] = eng
	slog.Info("Started report", "report_id", r.ID, "store", r.StoreName)
	return stateOf(eng), nil
}

// GetReport returns the session state, opening the stored report if needed
func (s *Service) GetReport(id string) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return stateOf(eng), nil
}

// UpdateReport validates and commits a change set
func (s *Service) UpdateReport(id string, c Changes) (*SessionState, error) {
	if err := c.Normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if err := eng.Update(c); err != nil {
		return nil, fmt.Errorf("updating report: %w", err)
	}
	return stateOf(eng), nil
}

// EditItem applies a manual edit to one item and clears its low confidence flag
func (s *Service) EditItem(id string, index int, edit ItemEdit) (*SessionState, error) {
	return s.modifyItems(id, index, func(items []SalesItem) []SalesItem {
		item := &items[index]
		if edit.SKU != nil {
			item.SKU = *edit.SKU
		}
		if edit.ProductName != nil {
			item.ProductName = *edit.ProductName
		}
		if edit.Quantity != nil {
			item.Quantity = *edit.Quantity
		}
		if edit.UnitPrice != nil {
			item.UnitPrice = *edit.UnitPrice
		}
		if edit.Currency != nil {
			item.Currency = *edit.Currency
		}
		if edit.Notes != nil {
			item.Notes = *edit.Notes
		}
		item.LowConfidence = false
		return items
	})
}

// RemoveItem deletes one item
func (s *Service) RemoveItem(id string, index int) (*SessionState, error) {
	return s.modifyItems(id, index, func(items []SalesItem) []SalesItem {
		return append(items[:index], items[index+1:]...)
	})
}

func (s *Service) modifyItems(id string, index int, fn func([]SalesItem) []SalesItem) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	current, _ := eng.State()
	if index < 0 || index >= len(current.Items) {
		return nil, fmt.Errorf("%w: %d", ErrItemIndex, index)
	}

	items := fn(current.Items)
	c := Changes{Items: &items}
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	if err := eng.Update(c); err != nil {
		return nil, fmt.Errorf("updating report: %w", err)
	}
	return stateOf(eng), nil
}

// Undo steps back one edit; it is a no-op when there is nothing to undo
func (s *Service) Undo(id string) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	eng.Undo()
	return stateOf(eng), nil
}

// Redo re-applies one undone edit; it is a no-op when there is nothing to redo
func (s *Service) Redo(id string) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	eng.Redo()
	return stateOf(eng), nil
}

// ensureSession fails fast for unknown reports before any extraction work
func (s *Service) ensureSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.session(id)
	return err
}

// commitCapture appends captured items under the lock as one history step
func (s *Service) commitCapture(id string, items []SalesItem, source Source, attachments []Attachment) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	current, _ := eng.State()
	if err := eng.Update(CaptureChanges(current, items, source, attachments...)); err != nil {
		return nil, fmt.Errorf("updating report: %w", err)
	}
	slog.Info("Captured items", "report_id", id, "source", source, "items", len(items))
	return stateOf(eng), nil
}

// CaptureFiles stores each upload as an attachment, extracts items from all of
// them concurrently and appends the results in upload order
func (s *Service) CaptureFiles(ctx context.Context, id string, source Source, uploads []Upload) (*SessionState, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidChanges, source)
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrInvalidChanges)
	}
	if err := s.ensureSession(id); err != nil {
		return nil, err
	}

	keys := make([]string, len(uploads))
	attachments := make([]Attachment, len(uploads))
	extracted := make([][]extraction.LineItem, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentExtractions)
	for i, up := range uploads {
		g.Go(func() error {
			key := attachmentPrefix(id) + s.idGenerator.Generate() + "_" + sanitizeFilename(up.Filename)
			saved, err := s.storage.Save(gctx, key, up.Data)
			if err != nil {
				return fmt.Errorf("saving %s: %w", up.Filename, err)
			}
			keys[i] = saved
			attachments[i] = Attachment{Type: attachmentType(up.ContentType), URL: AttachmentURLPrefix + saved}

			items, err := s.extract(gctx, up)
			if err != nil {
				slog.Error("Failed to extract items",
					"report_id", id,
					"filename", up.Filename,
					"content_type", up.ContentType,
					"file_size", len(up.Data),
					"error", err,
				)
				return fmt.Errorf("extracting %s: %w", up.Filename, err)
			}
			extracted[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.removeFiles(ctx, keys)
		return nil, err
	}

	var items []SalesItem
	for _, batch := range extracted {
		items = append(items, toSalesItems(batch)...)
	}
	if len(items) == 0 {
		s.removeFiles(ctx, keys)
		return nil, ErrNoItems
	}

	state, err := s.commitCapture(id, items, source, attachments)
	if err != nil {
		s.removeFiles(ctx, keys)
		return nil, err
	}
	return state, nil
}

// CaptureText extracts items from pasted text or a dictation transcript
func (s *Service) CaptureText(ctx context.Context, id string, source Source, text string) (*SessionState, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidChanges, source)
	}
	if err := s.ensureSession(id); err != nil {
		return nil, err
	}

	lineItems, err := s.extractor.ExtractText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}
	items := toSalesItems(lineItems)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return s.commitCapture(id, items, source, nil)
}

func (s *Service) extract(ctx context.Context, up Upload) ([]extraction.LineItem, error) {
	contentType := strings.ToLower(strings.TrimSpace(up.ContentType))
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		return s.extractor.ExtractAudio(ctx, up.Data, contentType)
	case strings.HasPrefix(contentType, "text/plain"):
		return s.extractor.ExtractText(ctx, string(up.Data))
	default:
		return s.extractor.ExtractImage(ctx, up.Data, contentType)
	}
}

func (s *Service) removeFiles(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.Warn("Failed to delete file", "key", key, "error", err)
		}
	}
}

// SaveReport persists the current state of a report
func (s *Service) SaveReport(id string) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.session(id)
	if err != nil {
		return nil, err
	}
	current, _ := eng.State()
	if strings.TrimSpace(current.StoreName) == "" {
		return nil, fmt.Errorf("%w: store name is required", ErrInvalidChanges)
	}

	if err := s.db.SaveReport(&current); err != nil {
		return nil, fmt.Errorf("saving report to database: %w", err)
	}

	result := &SaveResult{Report: current, Warnings: []string{}}
	if err := CheckTimezone(current.Timezone, s.timeSource.Now()); err != nil {
		slog.Warn("Report timezone check failed", "report_id", id, "error", err)
		result.Warnings = append(result.Warnings, err.Error())
	}
	slog.Info("Saved report", "report_id", id, "items", len(current.Items), "net", current.Totals.Net.String())
	return result, nil
}

// ListReports returns all saved reports, newest first
func (s *Service) ListReports() ([]*DailyReport, error) {
	reports, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// CloseReport discards the in-memory session and its unsaved edits
func (s *Service) CloseReport(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// DeleteReport removes a report, its attachments and any open session.
// Only files stored under the report's own key prefix are removed.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	keys, err := s.deleteReport(id)
	if err != nil {
		return err
	}
	s.removeFiles(ctx, keys)
	return nil
}

func (s *Service) deleteReport(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r DailyReport
	if eng, ok := s.sessions[id]; ok {
		r, _ = eng.State()
	} else {
		stored, err := s.db.GetReport(id)
		if err != nil {
			return nil, fmt.Errorf("getting report for deletion: %w", err)
		}
		r = *stored
	}

	if err := s.db.DeleteReport(id); err != nil {
		return nil, fmt.Errorf("deleting report from database: %w", err)
	}
	delete(s.sessions, id)

	prefix := attachmentPrefix(id)
	keys := make([]string, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		key := strings.TrimPrefix(a.URL, AttachmentURLPrefix)
		if !strings.HasPrefix(key, prefix) {
			slog.Warn("Skipping attachment owned by another report", "report_id", id, "url", a.URL)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ShareMessage returns the current share text of a report
func (s *Service) ShareMessage(id string) (string, error) {
	state, err := s.GetReport(id)
	if err != nil {
		return "", err
	}
	return state.Report.ShareMessage, nil
}

// GetAttachment returns a stored attachment and its sniffed content type
func (s *Service) GetAttachment(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return nil, "", fmt.Errorf("%w: invalid attachment key", ErrNotFound)
	}
	data, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("getting attachment: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// attachmentPrefix namespaces stored capture files by report
func attachmentPrefix(reportID string) string {
	return reportID + "_"
}

func toSalesItems(lineItems []extraction.LineItem) []SalesItem {
	items := make([]SalesItem, 0, len(lineItems))
	for _, li := range lineItems {
		currency := li.Currency
		if currency == "" {
			currency = DefaultCurrency
		}
		items = append(items, SalesItem{
			SKU:           li.SKU,
			ProductName:   li.ProductName,
			Quantity:      li.Quantity,
			UnitPrice:     li.UnitPrice,
			Currency:      currency,
			Notes:         li.Notes,
			LowConfidence: li.LowConfidence,
		})
	}
	return items
}

func attachmentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case strings.HasPrefix(contentType, "text/"):
		return "text"
	}
	return "document"
}

var (
	filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips phone-generated noise from a filename and caps its length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filenameUnsafe.ReplaceAllString(filepath.Ext(filename), "")
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = filenameUnsafe.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "capture"
	}
	if ext != "" {
		return base + "." + ext
	}
	return base
}
