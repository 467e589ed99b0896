package handler

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gaanbot/gaanbot/internal/metrics"
	"github.com/gaanbot/gaanbot/internal/playback"
	"github.com/gaanbot/gaanbot/internal/resolver"
)

func newTestBot() *Bot {
	return NewBot(BotConfig{QueueLimit: 10})
}

func TestShutdownBalancesActiveSessionsGauge(t *testing.T) {
	baseline := testutil.ToFloat64(metrics.ActiveSessions)

	b := newTestBot()
	b.sessions.GetOrCreate("guild-a")
	b.sessions.GetOrCreate("guild-b")

	if got := testutil.ToFloat64(metrics.ActiveSessions); got != baseline+2 {
		t.Fatalf("gauge after two sessions = %v, want %v", got, baseline+2)
	}

	b.Shutdown()

	if got := testutil.ToFloat64(metrics.ActiveSessions); got != baseline {
		t.Errorf("gauge after shutdown = %v, want %v", got, baseline)
	}
}

func TestEndSessionBalancesActiveSessionsGauge(t *testing.T) {
	baseline := testutil.ToFloat64(metrics.ActiveSessions)

	b := newTestBot()
	b.sessions.GetOrCreate("guild-a")
	b.endSession("guild-a")

	if got := testutil.ToFloat64(metrics.ActiveSessions); got != baseline {
		t.Errorf("gauge after endSession = %v, want %v", got, baseline)
	}

	// Ending a guild that has no session must not drive the gauge negative.
	b.endSession("guild-a")

	if got := testutil.ToFloat64(metrics.ActiveSessions); got != baseline {
		t.Errorf("gauge after redundant endSession = %v, want %v", got, baseline)
	}
}

func TestTrackStartedRecordsHistory(t *testing.T) {
	b := newTestBot()
	g := b.guildFor("guild-a")

	g.TrackStarted("guild-a", playback.PlayRequest{
		ID:    "req-1",
		Track: resolver.Track{Title: "first"},
	})
	g.TrackStarted("guild-a", playback.PlayRequest{
		ID:    "req-2",
		Track: resolver.Track{Title: "second"},
	})

	recent := b.historyFor("guild-a").Recent(10)
	if len(recent) != 2 {
		t.Fatalf("history length = %d, want 2", len(recent))
	}
	if recent[0].Track.Title != "second" || recent[1].Track.Title != "first" {
		t.Errorf("history order = [%s, %s], want newest first",
			recent[0].Track.Title, recent[1].Track.Title)
	}
}

func TestHistorySurvivesSessionTeardown(t *testing.T) {
	b := newTestBot()
	b.sessions.GetOrCreate("guild-a")
	g := b.guildFor("guild-a")

	g.TrackStarted("guild-a", playback.PlayRequest{
		ID:    "req-1",
		Track: resolver.Track{Title: "kept"},
	})

	b.endSession("guild-a")

	recent := b.historyFor("guild-a").Recent(10)
	if len(recent) != 1 || recent[0].Track.Title != "kept" {
		t.Errorf("history after teardown = %v, want the played track", recent)
	}
}
