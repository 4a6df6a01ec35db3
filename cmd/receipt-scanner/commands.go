package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/peterbourgon/ff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/receipt-scanner/internal/api"
	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/upload"
)

// app is the wired service for one command run
type app struct {
	service  *receipt.Service
	snapshot *receipt.BoltSnapshot
	storage  *receipt.LocalStorage
}

// newApp sets up logging and builds the service from the root flags
func (c *rootConfig) newApp() (*app, error) {
	if err := c.setupLogging(); err != nil {
		return nil, err
	}

	endpoints := api.NewEndpoints(*c.apiBaseURL)
	slog.Debug("Using receipt API", "graphql", endpoints.GraphQL)

	snapshot, err := receipt.NewBoltSnapshot(*c.dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	store, err := receipt.NewLocalStorage(*c.storagePath)
	if err != nil {
		snapshot.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	client := api.NewClient(endpoints, nil)
	return &app{
		service:  receipt.NewService(client, endpoints, snapshot, store),
		snapshot: snapshot,
		storage:  store,
	}, nil
}

func (a *app) Close() error {
	return a.snapshot.Close()
}

func newServeCommand(cfg *rootConfig) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(cfg.flags)
	var (
		port     = fs.IntLong("port", 8080, "HTTP server port")
		authUser = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
	)

	return &ff.Command{
		Name:      "serve",
		Usage:     "receipt-scanner serve [FLAGS]",
		ShortHelp: "run the web front-end",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			a, err := cfg.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server := receipt.NewServer(a.service, receipt.BasicAuth{
				Username: *authUser,
				Password: *authPass,
			})

			addr := fmt.Sprintf(":%d", *port)
			errc := make(chan error, 1)
			go func() {
				errc <- server.Start(addr)
			}()

			slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
			if *authUser != "" || *authPass != "" {
				slog.Info("Basic auth enabled", "user", *authUser)
			}

			select {
			case err := <-errc:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				slog.Info("Shutting down...")
				return nil
			}
		},
	}
}

func newUploadCommand(cfg *rootConfig) *ff.Command {
	fs := ff.NewFlagSet("upload").SetParent(cfg.flags)
	concurrency := fs.IntLong("concurrency", 4, "Number of uploads in flight")

	return &ff.Command{
		Name:      "upload",
		Usage:     "receipt-scanner upload [FLAGS] <FILE> ...",
		ShortHelp: "upload receipt images for extraction",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return errors.New("at least one file is required")
			}

			a, err := cfg.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var failed atomic.Int32
			g, ctx := errgroup.WithContext(ctx)
			g.SetLimit(max(*concurrency, 1))
			for _, path := range args {
				g.Go(func() error {
					if err := uploadFile(ctx, a.service, path); err != nil {
						failed.Add(1)
					}
					// One failed file does not cancel the others
					return nil
				})
			}
			g.Wait()

			if n := failed.Load(); n > 0 {
				return fmt.Errorf("%d of %d uploads failed", n, len(args))
			}
			return nil
		},
	}
}

// uploadFile uploads one image and reports the outcome
func uploadFile(ctx context.Context, service *receipt.Service, path string) error {
	file, err := receipt.OpenLocalFile(path)
	if err != nil {
		notifyError(os.Stderr, "Invalid file", err.Error())
		return err
	}
	defer file.Close()

	created, err := service.UploadReceipt(ctx, file)
	if err != nil {
		var validationErr *receipt.ValidationError
		if errors.As(err, &validationErr) {
			notifyError(os.Stderr, "Invalid file", fmt.Sprintf("%s: %s", file.Name(), validationErr.Message))
		} else {
			notifyError(os.Stderr, "Upload failed", fmt.Sprintf("%s: %v", file.Name(), err))
		}
		return err
	}

	store := created.StoreName
	if store == "" {
		store = "receipt"
	}
	notifySuccess(os.Stderr, "Receipt uploaded successfully!",
		fmt.Sprintf("%s (%s): extracted data from %s, id %s",
			file.Name(), receipt.FormatFileSize(file.Size()), store, created.ID))
	return nil
}

func newListCommand(cfg *rootConfig) *ff.Command {
	fs := ff.NewFlagSet("list").SetParent(cfg.flags)
	var (
		store        = fs.StringLong("store", "", "Only receipts whose store name contains this")
		from         = fs.StringLong("from", "", "Earliest purchase date, YYYY-MM-DD")
		to           = fs.StringLong("to", "", "Latest purchase date, YYYY-MM-DD")
		page         = fs.IntLong("page", 1, "Page number")
		size         = fs.IntLong("size", receipt.DefaultPageSize, "Page size: 6, 12, 24 or 48")
		offline      = fs.BoolLong("offline", "Read the last saved list without calling the API")
		serverFilter = fs.BoolLong("server-filter", "Send the store and date filter to the API")
	)

	return &ff.Command{
		Name:      "list",
		Usage:     "receipt-scanner list [FLAGS]",
		ShortHelp: "list receipts",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			opts := receipt.ListOptions{
				Store:        *store,
				Page:         *page,
				PageSize:     *size,
				Offline:      *offline,
				ServerFilter: *serverFilter,
			}
			var err error
			if opts.Range, err = parseRange(*from, *to); err != nil {
				return err
			}

			a, err := cfg.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			listing, err := a.service.ListReceipts(ctx, opts)
			if err != nil {
				return err
			}
			printListing(listing)
			return nil
		},
	}
}

// parseRange reads YYYY-MM-DD bounds; the end date covers the whole day
func parseRange(from, to string) (receipt.DateRange, error) {
	var r receipt.DateRange
	if from != "" {
		t, err := time.ParseInLocation(time.DateOnly, from, time.Local)
		if err != nil {
			return r, fmt.Errorf("invalid --from date: %w", err)
		}
		r.From = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(time.DateOnly, to, time.Local)
		if err != nil {
			return r, fmt.Errorf("invalid --to date: %w", err)
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		r.To = &end
	}
	return r, nil
}

func printListing(listing *receipt.Listing) {
	if listing.Offline {
		fmt.Fprintf(os.Stderr, "Showing saved receipts from %s\n", humanize.Time(listing.SyncedAt))
	}

	if len(listing.Receipts) == 0 {
		if listing.Total == 0 {
			fmt.Println("No receipts yet")
		} else {
			fmt.Println("No receipts match your filters")
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTORE\tTOTAL\tDATE\tITEMS")
	for _, r := range listing.Receipts {
		store := r.StoreName
		if store == "" {
			store = "Unknown Store"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", r.ID, store, receipt.FormatCurrency(r.TotalAmount), receipt.FormatDate(r.PurchaseDate), len(r.Items))
	}
	w.Flush()

	p := listing.Page
	fmt.Printf("\nShowing %d-%d of %d (%d of %d receipts match, page %d/%d)\n",
		p.StartItem(), p.EndItem(), p.TotalItems, listing.Matched, listing.Total, p.Current, p.TotalPages)
	if len(listing.Stores) > 0 {
		fmt.Printf("Stores: %s\n", strings.Join(listing.Stores, ", "))
	}
}

func newShowCommand(cfg *rootConfig) *ff.Command {
	fs := ff.NewFlagSet("show").SetParent(cfg.flags)

	return &ff.Command{
		Name:      "show",
		Usage:     "receipt-scanner show <ID>",
		ShortHelp: "show one receipt and its items",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one receipt ID is required")
			}

			a, err := cfg.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.service.GetReceipt(ctx, args[0])
			if err != nil {
				return err
			}

			store := r.StoreName
			if store == "" {
				store = "Unknown Store"
			}
			fmt.Printf("%s\n%s  %s\n", store, receipt.FormatCurrency(r.TotalAmount), receipt.FormatDate(r.PurchaseDate))
			if imageURL := a.service.ImageURL(*r); imageURL != "" {
				fmt.Printf("Image: %s\n", imageURL)
			}
			if len(r.Items) == 0 {
				return nil
			}

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tQTY\tPRICE")
			for _, item := range r.Items {
				qty := "1"
				if item.Quantity != nil {
					qty = humanize.Ftoa(*item.Quantity)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.Name, qty, receipt.FormatCurrency(item.Price))
			}
			return w.Flush()
		},
	}
}

func newImageCommand(cfg *rootConfig) *ff.Command {
	var (
		fs      = ff.NewFlagSet("image").SetParent(cfg.flags)
		refresh = fs.BoolLong("refresh", "Download again even if the image is already stored")
		remove  = fs.BoolLong("rm", "Remove the stored image instead of downloading it")
	)

	return &ff.Command{
		Name:      "image",
		Usage:     "receipt-scanner image [--refresh | --rm] <ID>",
		ShortHelp: "download a receipt image into the storage directory",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one receipt ID is required")
			}

			a, err := cfg.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if *remove {
				removed, err := a.service.RemoveImage(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Removed %s\n", a.storage.Path(removed))
				return nil
			}

			saved, err := a.service.DownloadImage(ctx, args[0], *refresh)
			if err != nil {
				var httpErr *upload.HTTPError
				if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
					return fmt.Errorf("image for receipt %s not found on the server", args[0])
				}
				return err
			}
			fmt.Println(a.storage.Path(saved))
			return nil
		},
	}
}
