package util

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name      string
		page      int
		perPage   int
		want      []int
		wantPages int
	}{
		{name: "first page", page: 1, perPage: 3, want: []int{1, 2, 3}, wantPages: 3},
		{name: "middle page", page: 2, perPage: 3, want: []int{4, 5, 6}, wantPages: 3},
		{name: "short last page", page: 3, perPage: 3, want: []int{7}, wantPages: 3},
		{name: "page past the end", page: 4, perPage: 3, want: nil, wantPages: 3},
		{name: "page zero", page: 0, perPage: 3, want: nil, wantPages: 3},
		{name: "everything on one page", page: 1, perPage: 100, want: items, wantPages: 1},
		{name: "nonsense page size", page: 1, perPage: 0, want: nil, wantPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pages := Paginate(items, tt.page, tt.perPage)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Paginate() mismatch (-want +got):\n%s", diff)
			}
			if pages != tt.wantPages {
				t.Errorf("Paginate() pages = %d, want %d", pages, tt.wantPages)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	got, pages := Paginate([]string{}, 1, 10)
	if len(got) != 0 || pages != 0 {
		t.Errorf("Paginate(empty) = (%v, %d), want (empty, 0)", got, pages)
	}
}
