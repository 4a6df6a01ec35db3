package receipt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/receipt-scanner/internal/api"
	"github.com/zombor/receipt-scanner/internal/upload"
)

// Backend is the remote receipt service. *api.Client satisfies it.
type Backend interface {
	UploadReceipt(ctx context.Context, file upload.File) (*api.Receipt, error)
	Receipts(ctx context.Context, filter *api.ReceiptFilter) ([]api.Receipt, error)
	Receipt(ctx context.Context, id string) (*api.Receipt, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Upload is a file that can be validated and sent to the backend
type Upload interface {
	upload.File
	Candidate
}

// ListOptions selects and pages the receipt list
type ListOptions struct {
	Store    string
	Range    DateRange
	Page     int
	PageSize int

	// ServerFilter sends the store and date filter to the backend instead of
	// only filtering the full list locally
	ServerFilter bool

	// Offline reads the last snapshot without calling the backend
	Offline bool
}

// Listing is one page of receipts plus what the filter controls need
type Listing struct {
	Receipts []Receipt
	Total    int // receipts before filtering
	Matched  int // receipts after filtering
	Stores   []string
	Page     Page
	Filters  int
	Offline  bool
	SyncedAt time.Time
}

// Service handles receipt operations against the backend
type Service struct {
	backend    Backend
	endpoints  api.Endpoints
	snapshot   Snapshot
	storage    Storage
	httpClient *http.Client
	timeSource TimeSource
}

// NewService creates a new Service with the default HTTP client and time source
func NewService(backend Backend, endpoints api.Endpoints, snapshot Snapshot, storage Storage) *Service {
	return NewServiceWithDeps(backend, endpoints, snapshot, storage, http.DefaultClient, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(backend Backend, endpoints api.Endpoints, snapshot Snapshot, storage Storage, httpClient *http.Client, timeSrc TimeSource) *Service {
	return &Service{
		backend:    backend,
		endpoints:  endpoints,
		snapshot:   snapshot,
		storage:    storage,
		httpClient: httpClient,
		timeSource: timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// UploadReceipt validates file, uploads it and refreshes the snapshot.
// Invalid files never reach the backend.
func (s *Service) UploadReceipt(ctx context.Context, file Upload) (*Receipt, error) {
	if err := ValidateFile(file); err != nil {
		slog.Warn("Rejected receipt upload",
			"filename", file.Name(),
			"content_type", file.ContentType(),
			"file_size", file.Size(),
			"error", err,
		)
		return nil, err
	}

	created, err := s.backend.UploadReceipt(ctx, file)
	if err != nil {
		slog.Error("Failed to upload receipt",
			"filename", file.Name(),
			"content_type", file.ContentType(),
			"file_size", file.Size(),
			"error", err,
		)
		return nil, fmt.Errorf("uploading receipt: %w", err)
	}

	receipt := fromAPI(*created)
	slog.Info("Uploaded receipt", "id", receipt.ID, "store", receipt.StoreName)

	// The list is refetched so the snapshot includes the new receipt
	if _, err := s.refresh(ctx); err != nil {
		slog.Warn("Failed to refresh receipts after upload", "error", err)
	}

	return &receipt, nil
}

// ListReceipts returns the filtered, paged receipt list. When the backend is
// unreachable the last snapshot is served instead.
func (s *Service) ListReceipts(ctx context.Context, opts ListOptions) (*Listing, error) {
	var (
		all      []Receipt
		syncedAt time.Time
		offline  bool
		err      error
	)

	switch {
	case opts.Offline:
		all, syncedAt, err = s.loadSnapshot()
		offline = true
	case opts.ServerFilter:
		all, err = s.fetch(ctx, serverFilter(opts))
		syncedAt = s.timeSource.Now()
	default:
		all, err = s.refresh(ctx)
		syncedAt = s.timeSource.Now()
	}

	if err != nil && !opts.Offline && s.snapshot != nil {
		slog.Warn("Backend unavailable, serving snapshot", "error", err)
		backendErr := err
		all, syncedAt, err = s.loadSnapshot()
		offline = true
		// A snapshot that was never written has nothing to serve
		if err == nil && syncedAt.IsZero() {
			err = backendErr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	// Stores come from the whole list so the selector never loses options
	stores := UniqueStores(all)

	matched := FilterByDateRange(FilterByStore(all, opts.Store), opts.Range)
	page, p := Paginate(matched, opts.Page, opts.PageSize)

	return &Listing{
		Receipts: page,
		Total:    len(all),
		Matched:  len(matched),
		Stores:   stores,
		Page:     p,
		Filters:  ActiveFilterCount(opts.Store, opts.Range),
		Offline:  offline,
		SyncedAt: syncedAt,
	}, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(ctx context.Context, id string) (*Receipt, error) {
	r, err := s.backend.Receipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	receipt := fromAPI(*r)
	return &receipt, nil
}

// ImageURL resolves a receipt's image path against the API base URL
func (s *Service) ImageURL(receipt Receipt) string {
	return s.endpoints.ImageURL(receipt.ImageURL)
}

// DownloadImage fetches a receipt's image and stores it locally, returning
// the stored filename. A previously stored copy is reused unless refresh is
// set.
func (s *Service) DownloadImage(ctx context.Context, id string, refresh bool) (string, error) {
	receipt, err := s.GetReceipt(ctx, id)
	if err != nil {
		return "", err
	}

	imageURL := s.ImageURL(*receipt)
	if imageURL == "" {
		return "", fmt.Errorf("receipt %s has no image", id)
	}
	name, err := imageFilename(receipt.ID, imageURL)
	if err != nil {
		return "", err
	}

	if refresh {
		if err := s.storage.Delete(name); err != nil {
			slog.Debug("No stored image to replace", "id", receipt.ID, "file", name, "error", err)
		}
	} else if _, err := s.storage.Get(name); err == nil {
		slog.Info("Using stored receipt image", "id", receipt.ID, "file", name)
		return name, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &upload.HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	saved, err := s.storage.Save(name, data)
	if err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}

	slog.Info("Downloaded receipt image", "id", receipt.ID, "file", saved, "size", len(data))
	return saved, nil
}

// RemoveImage deletes the stored copy of a receipt's image and returns the
// filename that was removed
func (s *Service) RemoveImage(ctx context.Context, id string) (string, error) {
	receipt, err := s.GetReceipt(ctx, id)
	if err != nil {
		return "", err
	}

	imageURL := s.ImageURL(*receipt)
	if imageURL == "" {
		return "", fmt.Errorf("receipt %s has no image", id)
	}
	name, err := imageFilename(receipt.ID, imageURL)
	if err != nil {
		return "", err
	}

	if err := s.storage.Delete(name); err != nil {
		return "", fmt.Errorf("removing image: %w", err)
	}
	slog.Info("Removed receipt image", "id", receipt.ID, "file", name)
	return name, nil
}

// imageFilename is the local name for a receipt image: the receipt ID and
// the sanitized last segment of the image URL
func imageFilename(id, imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("parsing image URL: %w", err)
	}
	return fmt.Sprintf("%s_%s", id, sanitizeFilename(path.Base(u.Path))), nil
}

// refresh fetches the full list and stores it in the snapshot
func (s *Service) refresh(ctx context.Context) ([]Receipt, error) {
	receipts, err := s.fetch(ctx, nil)
	if err != nil {
		return nil, err
	}
	if s.snapshot != nil {
		if err := s.snapshot.SaveReceipts(receipts, s.timeSource.Now()); err != nil {
			slog.Warn("Failed to save receipt snapshot", "error", err)
		}
	}
	return receipts, nil
}

func (s *Service) fetch(ctx context.Context, filter *api.ReceiptFilter) ([]Receipt, error) {
	list, err := s.backend.Receipts(ctx, filter)
	if err != nil {
		return nil, err
	}
	receipts := make([]Receipt, 0, len(list))
	for _, r := range list {
		receipts = append(receipts, fromAPI(r))
	}
	return receipts, nil
}

func (s *Service) loadSnapshot() ([]Receipt, time.Time, error) {
	if s.snapshot == nil {
		return nil, time.Time{}, fmt.Errorf("no snapshot configured")
	}
	receipts, at, err := s.snapshot.LoadReceipts()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading snapshot: %w", err)
	}
	return receipts, at, nil
}

// serverFilter builds the backend filter for opts; dates are sent as YYYY-MM-DD
func serverFilter(opts ListOptions) *api.ReceiptFilter {
	filter := &api.ReceiptFilter{}
	if opts.Store != "" && opts.Store != allStores {
		filter.StoreName = opts.Store
	}
	if opts.Range.From != nil {
		filter.StartDate = opts.Range.From.Format(time.DateOnly)
	}
	if opts.Range.To != nil {
		filter.EndDate = opts.Range.To.Format(time.DateOnly)
	}
	return filter
}

// fromAPI converts a backend record, leaving unknown fields empty
func fromAPI(r api.Receipt) Receipt {
	receipt := Receipt{
		ID:          r.ID,
		TotalAmount: r.TotalAmount,
		ImageURL:    r.ImageURL,
		Items:       make([]Item, 0, len(r.Items)),
	}
	if r.StoreName != nil {
		receipt.StoreName = *r.StoreName
	}
	if r.PurchaseDate != nil {
		receipt.PurchaseDate = *r.PurchaseDate
	}
	if r.CreatedAt != "" {
		if t, err := parseTimestamp(r.CreatedAt); err == nil {
			receipt.CreatedAt = t
		}
	}
	for _, item := range r.Items {
		receipt.Items = append(receipt.Items, Item{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return receipt
}
