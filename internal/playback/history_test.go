package playback_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gaanbot/gaanbot/internal/playback"
)

func TestHistoryIsNewestFirst(t *testing.T) {
	h := playback.NewHistory(5)
	for _, title := range []string{"a", "b", "c"} {
		h.Record(request(title))
	}

	want := []string{"c", "b", "a"}
	if diff := cmp.Diff(want, titles(h.Recent(10))); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryDropsOldestPastCap(t *testing.T) {
	h := playback.NewHistory(3)
	for i := range 5 {
		h.Record(request(fmt.Sprintf("track-%d", i)))
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	want := []string{"track-4", "track-3", "track-2"}
	if diff := cmp.Diff(want, titles(h.Recent(10))); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryRecentHonorsLimit(t *testing.T) {
	h := playback.NewHistory(10)
	for _, title := range []string{"a", "b", "c", "d"} {
		h.Record(request(title))
	}

	got := h.Recent(2)
	if diff := cmp.Diff([]string{"d", "c"}, titles(got)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}
