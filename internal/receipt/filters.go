package receipt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// allStores is the store selection that disables store filtering
const allStores = "all"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISO parses an ISO 8601 date or timestamp. Values without a zone are
// read in local time, like dates picked from a calendar.
func parseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO date: %q", s)
}

// parseTimestamp accepts ISO 8601 or Unix milliseconds
func parseTimestamp(s string) (time.Time, error) {
	if t, err := parseISO(s); err == nil {
		return t, nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %q", s)
	}
	return time.UnixMilli(ms), nil
}

// FilterByDateRange keeps receipts purchased within r, bounds inclusive.
// Receipts without a purchase date are dropped once any bound is set.
func FilterByDateRange(receipts []Receipt, r DateRange) []Receipt {
	if r.IsZero() {
		return receipts
	}

	filtered := make([]Receipt, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.PurchaseDate == "" {
			continue
		}
		date, err := parseISO(receipt.PurchaseDate)
		if err != nil {
			continue
		}
		if r.From != nil && date.Before(*r.From) {
			continue
		}
		if r.To != nil && date.After(*r.To) {
			continue
		}
		filtered = append(filtered, receipt)
	}
	return filtered
}

// FilterByStore keeps receipts whose store name contains store, ignoring
// case. An empty store or "all" keeps everything.
func FilterByStore(receipts []Receipt, store string) []Receipt {
	if store == "" || store == allStores {
		return receipts
	}

	needle := strings.ToLower(store)
	filtered := make([]Receipt, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.StoreName != "" && strings.Contains(strings.ToLower(receipt.StoreName), needle) {
			filtered = append(filtered, receipt)
		}
	}
	return filtered
}

// UniqueStores returns the sorted set of known store names
func UniqueStores(receipts []Receipt) []string {
	seen := make(map[string]struct{})
	stores := make([]string, 0)
	for _, receipt := range receipts {
		if receipt.StoreName == "" {
			continue
		}
		if _, ok := seen[receipt.StoreName]; ok {
			continue
		}
		seen[receipt.StoreName] = struct{}{}
		stores = append(stores, receipt.StoreName)
	}
	sort.Strings(stores)
	return stores
}

// ActiveFilterCount counts the store and date filters in use
func ActiveFilterCount(store string, r DateRange) int {
	count := 0
	if store != "" && store != allStores {
		count++
	}
	if !r.IsZero() {
		count++
	}
	return count
}

// FormatCurrency renders an amount in dollars; unknown amounts render as $0.00
func FormatCurrency(amount *float64) string {
	if amount == nil {
		return "$0.00"
	}
	return fmt.Sprintf("$%.2f", *amount)
}

// FormatDate renders an ISO date as "Jan 02, 2006"
func FormatDate(date string) string {
	if date == "" {
		return "Unknown Date"
	}
	t, err := parseISO(date)
	if err != nil {
		return "Invalid Date"
	}
	return t.Format("Jan 02, 2006")
}
