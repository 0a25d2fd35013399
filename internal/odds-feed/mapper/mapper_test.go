package mapper

import (
	"testing"
	"time"

	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

func TestToIngest(t *testing.T) {
	u := events.OddsUpdate{
		EventID:      "MATCH_001",
		HomeTeam:     "São Paulo",
		AwayTeam:     "Vasco",
		Championship: "Brasileirão Série A",
		KickoffAt:    time.Date(2025, 3, 10, 21, 30, 0, 0, time.FixedZone("BRT", -3*3600)),
		Market:       "1x2",
		Odds:         events.Odds{Home: 2.1, Draw: 0, Away: 3.4},
		Version:      7,
	}

	p, ok := ToIngest(u, "supplier")
	if !ok {
		t.Fatal("expected ok")
	}

	if len(p.Teams) != 2 || p.Teams[0].ExternalKey() != "supplier:team:são-paulo" {
		t.Errorf("teams = %+v", p.Teams)
	}
	if len(p.Championships) != 1 || p.Championships[0].ExternalKey() != "supplier:championship:brasileirão-série-a" {
		t.Errorf("championships = %+v", p.Championships)
	}

	g := p.Games[0]
	if g.ExternalKey() != "supplier:game:MATCH_001" || *g.HomeTeamID != "supplier:team:são-paulo" {
		t.Errorf("game = %+v", g)
	}
	if *g.KickoffAt != "2025-03-11T00:30:00Z" {
		t.Errorf("kickoffAt = %s", *g.KickoffAt)
	}

	if len(p.Markets) != 2 {
		t.Fatalf("markets = %d, want 2 (draw unavailable)", len(p.Markets))
	}
	home := p.Markets[0]
	if home.ExternalKey() != "supplier:market:MATCH_001:1x2:home" || *home.Odds != 2.1 || *home.GameID != g.ExternalKey() {
		t.Errorf("home market = %+v", home)
	}
	if *p.Markets[1].Selection != "away" {
		t.Errorf("second selection = %s", *p.Markets[1].Selection)
	}
	if home.IsProcessed != nil || home.IsProfitable != nil {
		t.Error("flags are left to the catalog")
	}
	if g.Status != nil {
		t.Errorf("status = %s, want unset so re-sends keep API changes", *g.Status)
	}
}

func TestToIngest_Rejects(t *testing.T) {
	for _, u := range []events.OddsUpdate{
		{HomeTeam: "A", AwayTeam: "B"},
		{EventID: "X", HomeTeam: " ", AwayTeam: "B"},
	} {
		if _, ok := ToIngest(u, "supplier"); ok {
			t.Errorf("ToIngest(%+v) should not be ok", u)
		}
	}
}

func TestToIngest_OptionalFields(t *testing.T) {
	p, ok := ToIngest(events.OddsUpdate{EventID: "E", HomeTeam: "A", AwayTeam: "B", Odds: events.Odds{Home: 1.5}}, "p")
	if !ok {
		t.Fatal("expected ok")
	}
	if len(p.Championships) != 0 || p.Games[0].ChampionshipID != nil || p.Games[0].KickoffAt != nil {
		t.Errorf("optional fields should stay absent: %+v", p)
	}
	if *p.Markets[0].MarketType != MarketOneXTwo {
		t.Errorf("marketType = %s", *p.Markets[0].MarketType)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Flamengo":         "flamengo",
		"  Grêmio  FBPA ":  "grêmio-fbpa",
		"Atlético-MG":      "atlético-mg",
		"Bragantino (SP)!": "bragantino-sp",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
