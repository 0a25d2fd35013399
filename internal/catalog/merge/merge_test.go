package merge

import (
	"fmt"
	"testing"
	"time"

	"github.com/radieske/palpitei-api/internal/catalog/model"
)

func fixedStamper(t0 time.Time) (Stamper, *time.Time) {
	now := t0
	n := 0
	return Stamper{
		Now: func() time.Time { return now },
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
	}, &now
}

func team(id, ext, name string) model.Team {
	t := model.Team{Meta: model.Meta{ID: id}, Name: model.StrPtr(name)}
	if ext != "" {
		t.ExternalID = model.StrPtr(ext)
	}
	return t
}

func TestUpsert_ExternalIDTakesPrecedenceOverID(t *testing.T) {
	s, _ := fixedStamper(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	existing := []model.Team{
		team("A", "ext1", "old"),
		team("B", "", "other"),
	}

	res, err := Upsert(s, existing, []model.Team{team("B", "ext1", "X")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(res.Merged) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Merged))
	}
	got := res.Merged[0]
	if got.ID != "A" || *got.Name != "X" {
		t.Errorf("got id=%s name=%s, want id=A name=X", got.ID, *got.Name)
	}
	if *res.Merged[1].Name != "other" {
		t.Errorf("record B must be untouched, got name=%s", *res.Merged[1].Name)
	}
	if len(res.Upserted) != 1 || res.Upserted[0].ID != "A" {
		t.Errorf("upserted = %+v, want single record with id A", res.Upserted)
	}
}

func TestUpsert_IDFallbackReplacesInPlace(t *testing.T) {
	s, _ := fixedStamper(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	existing := []model.Team{team("Z", "", "first"), team("A", "", "old"), team("C", "", "last")}

	res, err := Upsert(s, existing, []model.Team{team("A", "", "Y")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(res.Merged) != 3 {
		t.Fatalf("got %d records, want 3", len(res.Merged))
	}
	if res.Merged[1].ID != "A" || *res.Merged[1].Name != "Y" {
		t.Errorf("position 1 = %s/%s, want A/Y", res.Merged[1].ID, *res.Merged[1].Name)
	}
}

func TestUpsert_NewRecordGetsGeneratedIDAndTimestamps(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s, _ := fixedStamper(t0)

	res, err := Upsert(s, []model.Team{team("A", "", "a")}, []model.Team{team("", "", "novo")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(res.Merged) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Merged))
	}
	got := res.Merged[1]
	if got.ID != "gen-1" {
		t.Errorf("id = %q, want gen-1", got.ID)
	}
	if got.CreatedAt == "" || got.CreatedAt != got.UpdatedAt {
		t.Errorf("createdAt=%q updatedAt=%q, want equal and set", got.CreatedAt, got.UpdatedAt)
	}
	if got.CreatedAt != "2025-03-10T12:00:00.000Z" {
		t.Errorf("createdAt = %q", got.CreatedAt)
	}
}

func TestUpsert_UnmatchedCandidateKeepsItsOwnID(t *testing.T) {
	s, _ := fixedStamper(time.Now())
	res, err := Upsert(s, nil, []model.Team{team("mine", "", "x")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if res.Merged[0].ID != "mine" {
		t.Errorf("id = %q, want mine", res.Merged[0].ID)
	}
}

func TestUpsert_ReingestKeepsCreatedAtAndAdvancesUpdatedAt(t *testing.T) {
	s, now := fixedStamper(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	batch := []model.Team{team("", "t-1", "Um"), team("", "t-2", "Dois")}

	first, err := Upsert(s, nil, batch)
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	*now = now.Add(time.Second)
	second, err := Upsert(s, first.Merged, batch)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if len(second.Merged) != len(first.Merged) {
		t.Fatalf("size changed: %d -> %d", len(first.Merged), len(second.Merged))
	}
	for i := range second.Merged {
		a, b := first.Merged[i], second.Merged[i]
		if a.ID != b.ID {
			t.Errorf("[%d] id changed %s -> %s", i, a.ID, b.ID)
		}
		if a.CreatedAt != b.CreatedAt {
			t.Errorf("[%d] createdAt changed %s -> %s", i, a.CreatedAt, b.CreatedAt)
		}
		if !(b.UpdatedAt > a.UpdatedAt) {
			t.Errorf("[%d] updatedAt not later: %s -> %s", i, a.UpdatedAt, b.UpdatedAt)
		}
	}
}

func TestUpsert_FieldUnionKeepsUnsetFields(t *testing.T) {
	s, _ := fixedStamper(time.Now())
	existing := []model.Team{{
		Meta:      model.Meta{ID: "A", ExternalID: model.StrPtr("e"), CreatedAt: "2024-01-01T00:00:00.000Z"},
		Name:      model.StrPtr("Time"),
		ShortName: model.StrPtr("TIM"),
	}}

	res, err := Upsert(s, existing, []model.Team{{Meta: model.Meta{ExternalID: model.StrPtr("e")}, Country: model.StrPtr("BR")}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got := res.Merged[0]
	if *got.Name != "Time" || *got.ShortName != "TIM" || *got.Country != "BR" {
		t.Errorf("union lost fields: %+v", got)
	}
	if got.CreatedAt != "2024-01-01T00:00:00.000Z" {
		t.Errorf("createdAt = %q, want inherited", got.CreatedAt)
	}
}

func TestUpsert_SameTargetTwiceLastWins(t *testing.T) {
	s, _ := fixedStamper(time.Now())
	existing := []model.Team{team("A", "e", "old")}

	res, err := Upsert(s, existing, []model.Team{team("", "e", "one"), team("A", "", "two")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(res.Merged) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Merged))
	}
	if *res.Merged[0].Name != "two" {
		t.Errorf("name = %s, want two", *res.Merged[0].Name)
	}
	if len(res.Upserted) != 2 {
		t.Errorf("upserted %d, want 2", len(res.Upserted))
	}
}

func TestUpsert_DuplicateExternalIDIndexUsesLastOccurrence(t *testing.T) {
	s, _ := fixedStamper(time.Now())
	existing := []model.Team{team("A", "dup", "a"), team("B", "dup", "b")}

	res, err := Upsert(s, existing, []model.Team{team("", "dup", "new")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if *res.Merged[0].Name != "a" || *res.Merged[1].Name != "new" {
		t.Errorf("got %s,%s want a,new", *res.Merged[0].Name, *res.Merged[1].Name)
	}
}

func TestUpsert_NewCandidatesSharingExternalIDAreBothAppended(t *testing.T) {
	s, _ := fixedStamper(time.Now())
	res, err := Upsert(s, nil, []model.Team{team("", "same", "a"), team("", "same", "b")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(res.Merged) != 2 {
		t.Errorf("got %d records, want 2 (index covers only the original collection)", len(res.Merged))
	}
}

func TestUpsert_DoesNotMutateExisting(t *testing.T) {
	s, _ := fixedStamper(time.Now())
	existing := []model.Team{team("A", "", "old")}
	if _, err := Upsert(s, existing, []model.Team{team("A", "", "new")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if *existing[0].Name != "old" {
		t.Errorf("existing slice mutated: %s", *existing[0].Name)
	}
}

func TestPatch_PinsIDAndStampsUpdatedAt(t *testing.T) {
	s, _ := fixedStamper(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	existing := model.Market{
		Meta:        model.Meta{ID: "m1", CreatedAt: "2025-01-01T00:00:00.000Z", UpdatedAt: "2025-01-01T00:00:00.000Z"},
		GameID:      model.StrPtr("g1"),
		IsProcessed: boolPtr(true),
	}
	patch := model.Market{Meta: model.Meta{ID: "other"}, IsProfitable: boolPtr(true)}

	got, err := Patch(s, existing, patch)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got.ID != "m1" {
		t.Errorf("id = %s, want m1", got.ID)
	}
	if !got.Processed() || !got.Profitable() {
		t.Errorf("flags = %v/%v, want true/true", got.Processed(), got.Profitable())
	}
	if got.UpdatedAt != "2025-05-01T00:00:00.000Z" {
		t.Errorf("updatedAt = %s", got.UpdatedAt)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestUpsertWith_OnCreateOnlyForUnmatched(t *testing.T) {
	s, _ := fixedStamper(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	existing := []model.Team{team("A", "ext1", "old")}

	calls := 0
	shorten := func(t model.Team) model.Team {
		calls++
		t.ShortName = model.StrPtr("NEW")
		return t
	}
	res, err := UpsertWith(s, existing, []model.Team{team("", "ext1", "updated"), team("", "ext2", "fresh")}, shorten)
	if err != nil {
		t.Fatalf("UpsertWith: %v", err)
	}
	if calls != 1 {
		t.Fatalf("onCreate calls = %d, want 1", calls)
	}
	if res.Merged[0].ShortName != nil {
		t.Errorf("matched record got onCreate fields: %+v", res.Merged[0])
	}
	created := res.Merged[1]
	if created.ShortName == nil || *created.ShortName != "NEW" || created.ID != "gen-1" || created.CreatedAt == "" {
		t.Errorf("created = %+v", created)
	}
}

func TestStamp_DefaultClockIsStrictlyIncreasing(t *testing.T) {
	var s Stamper
	prev := s.Stamp()
	for i := 0; i < 2000; i++ {
		next := s.Stamp()
		if next <= prev {
			t.Fatalf("stamp %d: %s is not after %s", i, next, prev)
		}
		prev = next
	}
}
