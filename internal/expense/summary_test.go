package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/expense"
)

func at(day string) time.Time {
	t, err := time.ParseInLocation(domain.DayLayout, day, seoul)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestSummarize(t *testing.T) {
	list := []*domain.Expense{
		{ID: "1", Date: at("2025-05-02"), Category: "food", Amount: 100},
		{ID: "2", Date: at("2025-05-01"), Category: "transport", Amount: 500},
		{ID: "3", Date: at("2025-05-01"), Category: "food", Amount: 250},
		{ID: "4", Date: at("2025-05-02"), Category: "food", Amount: 50},
		{ID: "5", Date: at("2025-05-03"), Category: "rent", Amount: 400},
	}
	r := domain.DateRange{From: at("2025-05-01"), To: at("2025-05-03")}

	sum := expense.Summarize(list, r, seoul)

	wantCat := []expense.CategoryTotal{
		{Category: "transport", Total: 500},
		{Category: "food", Total: 400},
		{Category: "rent", Total: 400},
	}
	if len(sum.ByCategory) != len(wantCat) {
		t.Fatalf("ByCategory = %+v", sum.ByCategory)
	}
	for i, want := range wantCat {
		if sum.ByCategory[i] != want {
			t.Errorf("ByCategory[%d] = %+v; want %+v", i, sum.ByCategory[i], want)
		}
	}

	wantDay := []expense.DayTotal{
		{Date: "2025-05-01", Total: 750},
		{Date: "2025-05-02", Total: 150},
		{Date: "2025-05-03", Total: 400},
	}
	for i, want := range wantDay {
		if sum.ByDay[i] != want {
			t.Errorf("ByDay[%d] = %+v; want %+v", i, sum.ByDay[i], want)
		}
	}

	wantDayCat := []expense.DayCategoryTotal{
		{Date: "2025-05-01", Category: "food", Total: 250},
		{Date: "2025-05-01", Category: "transport", Total: 500},
		{Date: "2025-05-02", Category: "food", Total: 150},
		{Date: "2025-05-03", Category: "rent", Total: 400},
	}
	if len(sum.ByDayCategory) != len(wantDayCat) {
		t.Fatalf("ByDayCategory = %+v", sum.ByDayCategory)
	}
	for i, want := range wantDayCat {
		if sum.ByDayCategory[i] != want {
			t.Errorf("ByDayCategory[%d] = %+v; want %+v", i, sum.ByDayCategory[i], want)
		}
	}

	if !sum.Range.From.Equal(r.From) || !sum.Range.To.Equal(r.To) {
		t.Errorf("Range = %+v", sum.Range)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := expense.Summarize(nil, domain.DateRange{}, time.UTC)
	if sum.ByCategory == nil || sum.ByDay == nil || sum.ByDayCategory == nil {
		t.Error("empty summary should carry empty slices, not nil")
	}
}

func TestSummarize_DayBucketUsesLocation(t *testing.T) {
	// 20:00 UTC on May 1 is already May 2 in Seoul
	list := []*domain.Expense{
		{ID: "1", Date: time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC), Category: "food", Amount: 10},
	}
	sum := expense.Summarize(list, domain.DateRange{}, seoul)
	if sum.ByDay[0].Date != "2025-05-02" {
		t.Errorf("ByDay[0].Date = %q; want 2025-05-02", sum.ByDay[0].Date)
	}
}

func TestServiceSummary(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	for _, in := range []expense.CreateInput{
		{Date: "2025-05-08", Category: "food", Amount: 100},
		{Date: "2025-05-09", Category: "food", Amount: 200},
	} {
		if _, err := svc.Create(ctx, "u1", in); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	r, _ := svc.ParseRange("", "")
	sum, err := svc.Summary(ctx, "u1", r)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if len(sum.ByCategory) != 1 || sum.ByCategory[0].Total != 300 {
		t.Errorf("ByCategory = %+v", sum.ByCategory)
	}
	if len(sum.ByDay) != 2 {
		t.Errorf("ByDay = %+v", sum.ByDay)
	}
}
