package util

// FindFirst returns the first element matching the predicate.
// The second return value reports whether a match was found.
func FindFirst[T any](slice []T, predicate func(T) bool) (T, bool) {
	for _, v := range slice {
		if predicate(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Paginate returns the 1-based page of a slice, and the total page count.
// An out-of-range page yields an empty slice.
func Paginate[T any](slice []T, page, perPage int) ([]T, int) {
	if perPage <= 0 {
		return nil, 0
	}
	totalPages := (len(slice) + perPage - 1) / perPage
	if page < 1 || page > totalPages {
		return nil, totalPages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(slice))
	return slice[start:end], totalPages
}
