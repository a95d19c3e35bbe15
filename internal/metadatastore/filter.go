package metadatastore

import (
	"sort"
	"time"

	"github.com/coalbin/dropvault/internal/domain"
)

// Matches reports whether rec satisfies f as of now.
func Matches(rec domain.FileRecord, f Filter, now time.Time) bool {
	if expired := rec.Expired(now); expired != f.ExpiredOnly {
		return false
	}
	if f.MimeType != "" && rec.MimeType != f.MimeType {
		return false
	}
	if f.MinSize > 0 && rec.Size < f.MinSize {
		return false
	}
	if f.MaxSize > 0 && rec.Size > f.MaxSize {
		return false
	}
	if !f.UploadedAfter.IsZero() && !rec.UploadedAt.After(f.UploadedAfter) {
		return false
	}
	if !f.UploadedBefore.IsZero() && !rec.UploadedAt.Before(f.UploadedBefore) {
		return false
	}
	return true
}

// ApplyFilter filters recs by f, sorts the survivors by UploadedAt
// descending (newest first, ties broken by id ascending for a stable
// order), and paginates per f.Limit/f.Offset. The returned Total reflects
// the filtered count before pagination.
func ApplyFilter(recs []domain.FileRecord, f Filter, now time.Time) SearchResult {
	matched := make([]domain.FileRecord, 0, len(recs))
	for _, r := range recs {
		if Matches(r, f, now) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UploadedAt.Equal(matched[j].UploadedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	total := len(matched)
	start := f.Offset
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return SearchResult{Records: matched[start:end], Total: total}
}
