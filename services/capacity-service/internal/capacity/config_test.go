package capacity

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestResolve_DefaultsWhenRowAbsent(t *testing.T) {
	p := NewConfigProvider(&fakeConfigStore{found: false}, testLogger())

	got := p.Resolve(context.Background())
	if !reflect.DeepEqual(got, DefaultConfig()) {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestResolve_DefaultsWhenStoreFails(t *testing.T) {
	p := NewConfigProvider(&fakeConfigStore{err: errors.New("unreachable")}, testLogger())

	got := p.Resolve(context.Background())
	if !reflect.DeepEqual(got, DefaultConfig()) {
		t.Fatalf("expected defaults on store failure, got %+v", got)
	}
}

func TestResolve_PartialRowFillsPerField(t *testing.T) {
	store := &fakeConfigStore{
		row:   ConfigRow{DailyCapacity: intPtr(50), BlockedDates: []string{"2024-02-14"}},
		found: true,
	}
	p := NewConfigProvider(store, testLogger())

	got := p.Resolve(context.Background())
	if got.DailyCapacity != 50 {
		t.Fatalf("expected configured capacity 50, got %d", got.DailyCapacity)
	}
	if got.MaxItemsPerOrder != 15 || got.MinLeadTimeDays != 3 {
		t.Fatalf("expected defaults for unset fields, got %+v", got)
	}
	if !reflect.DeepEqual(got.BlockedDates, []string{"2024-02-14"}) {
		t.Fatalf("expected configured blocked dates, got %v", got.BlockedDates)
	}
}

func TestEffectiveLeadTimeDays_PolicyFloor(t *testing.T) {
	cases := []struct {
		configured int
		want       int
	}{
		{0, 3},
		{1, 3},
		{3, 3},
		{7, 7},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.MinLeadTimeDays = tc.configured
		if got := EffectiveLeadTimeDays(cfg); got != tc.want {
			t.Fatalf("configured %d: expected %d, got %d", tc.configured, tc.want, got)
		}
	}
}
