package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	levelSuccess = "success"
	levelError   = "error"

	// maxUploadBody leaves room for multipart framing around a maximum size file
	maxUploadBody = MaxFileSize + 1<<20
)

// notice is a one-shot message shown after a redirect
type notice struct {
	Title  string
	Detail string
	Level  string
}

// indexView is the data behind the receipt grid
type indexView struct {
	Listing   *Listing
	Error     string
	Notice    *notice
	Store     string
	From      string
	To        string
	PageSizes []int
	MaxSize   int64
}

// PageURL links to page n keeping the current filters
func (v indexView) PageURL(n int) string {
	q := url.Values{}
	if v.Store != "" {
		q.Set("store", v.Store)
	}
	if v.From != "" {
		q.Set("from", v.From)
	}
	if v.To != "" {
		q.Set("to", v.To)
	}
	q.Set("page", strconv.Itoa(n))
	if v.Listing != nil {
		q.Set("size", strconv.Itoa(v.Listing.Page.Size))
	}
	return "/?" + q.Encode()
}

// PageNumbers lists every page for the pager
func (v indexView) PageNumbers() []int {
	if v.Listing == nil {
		return nil
	}
	pages := make([]int, v.Listing.Page.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// formFile adapts a browser-uploaded file to Upload
type formFile struct {
	multipart.File
	header *multipart.FileHeader
}

func (f *formFile) Name() string {
	return f.header.Filename
}

func (f *formFile) Size() int64 {
	return f.header.Size
}

func (f *formFile) ContentType() string {
	return strings.ToLower(strings.TrimSpace(f.header.Header.Get("Content-Type")))
}

// listOptions reads filters and paging from the query string. Bad dates are
// ignored rather than rejected.
func listOptions(q url.Values) ListOptions {
	opts := ListOptions{Store: q.Get("store")}
	if from, err := time.ParseInLocation(time.DateOnly, q.Get("from"), time.Local); err == nil {
		opts.Range.From = &from
	}
	if to, err := time.ParseInLocation(time.DateOnly, q.Get("to"), time.Local); err == nil {
		// The end date includes the whole day
		end := to.Add(24*time.Hour - time.Nanosecond)
		opts.Range.To = &end
	}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PageSize, _ = strconv.Atoi(q.Get("size"))
	opts.ServerFilter = q.Get("server") == "1"
	return opts
}

// handleIndex renders the receipt grid
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := indexView{
		Store:     q.Get("store"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		PageSizes: PageSizes,
		MaxSize:   MaxFileSize,
	}
	if title := q.Get("notice"); title != "" {
		view.Notice = &notice{Title: title, Detail: q.Get("detail"), Level: q.Get("level")}
	}

	listing, err := s.service.ListReceipts(r.Context(), listOptions(q))
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		view.Error = "Error loading receipts. Please try again."
	}
	view.Listing = listing

	s.render(w, "index.html", view)
}

// handleReceipt renders a single receipt
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Error getting receipt", "id", r.PathValue("id"), "error", err)
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	s.render(w, "receipt.html", receipt)
}

// handleReceiptImage redirects to the receipt image on the API server
func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	imageURL := s.service.ImageURL(*receipt)
	if imageURL == "" {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, imageURL, http.StatusFound)
}

// handleUpload accepts a browser form upload and redirects back to the grid
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		detail := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			detail = fmt.Sprintf("File size exceeds %s. Please upload a smaller file.", FormatFileSize(MaxFileSize))
		}
		redirectWithNotice(w, r, notice{Title: "Invalid file", Detail: detail, Level: levelError})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		redirectWithNotice(w, r, notice{
			Title:  "Invalid file",
			Detail: "No file was selected. Please choose a file to upload.",
			Level:  levelError,
		})
		return
	}
	defer f.Close()

	receipt, err := s.service.UploadReceipt(r.Context(), &formFile{File: f, header: header})
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			redirectWithNotice(w, r, notice{Title: "Invalid file", Detail: validationErr.Message, Level: levelError})
			return
		}
		redirectWithNotice(w, r, notice{Title: "Upload failed", Detail: err.Error(), Level: levelError})
		return
	}

	store := receipt.StoreName
	if store == "" {
		store = "receipt"
	}
	redirectWithNotice(w, r, notice{
		Title:  "Receipt uploaded successfully!",
		Detail: "Extracted data from " + store,
		Level:  levelSuccess,
	})
}

// handleListReceiptsJSON returns the filtered receipt page as JSON
func (s *Server) handleListReceiptsJSON(w http.ResponseWriter, r *http.Request) {
	listing, err := s.service.ListReceipts(r.Context(), listOptions(r.URL.Query()))
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, listing)
}

// handleGetReceiptJSON returns a single receipt as JSON
func (s *Server) handleGetReceiptJSON(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, receipt)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Error rendering template", "template", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, n notice) {
	q := url.Values{}
	q.Set("notice", n.Title)
	q.Set("detail", n.Detail)
	q.Set("level", n.Level)
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}
