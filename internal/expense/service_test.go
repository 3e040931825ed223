package expense_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/events"
	"github.com/felixgeelhaar/finplan/internal/expense"
	"github.com/felixgeelhaar/finplan/internal/storage/memory"
)

var seoul = time.FixedZone("KST", 9*60*60)

func newService(t *testing.T, pub events.Publisher) *expense.Service {
	t.Helper()
	svc := expense.NewService(memory.New(), pub, seoul)
	svc.SetClock(func() time.Time { return time.Date(2025, 5, 10, 15, 0, 0, 0, seoul) })
	return svc
}

func TestCreate(t *testing.T) {
	var published []string
	pub := events.PublisherFunc(func(_ context.Context, ev domain.Event) error {
		published = append(published, ev.Type)
		return nil
	})
	svc := newService(t, pub)

	e, err := svc.Create(context.Background(), "u1", expense.CreateInput{
		Date: "2025-05-09", Category: "food", Amount: 12000, Memo: "lunch",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" || e.UserID != "u1" {
		t.Errorf("Create() = %+v", e)
	}
	want := time.Date(2025, 5, 9, 0, 0, 0, 0, seoul)
	if !e.Date.Equal(want) {
		t.Errorf("Date = %v; want %v", e.Date, want)
	}
	if e.Date.Location() != time.UTC {
		t.Errorf("Date should be stored in UTC, got %v", e.Date.Location())
	}
	if len(published) != 1 || published[0] != domain.EventExpenseCreated {
		t.Errorf("published = %v", published)
	}
}

func TestCreate_Invalid(t *testing.T) {
	svc := newService(t, nil)

	tests := []struct {
		name string
		in   expense.CreateInput
	}{
		{"bad date", expense.CreateInput{Date: "yesterday", Category: "food", Amount: 1}},
		{"missing category", expense.CreateInput{Date: "2025-05-09", Amount: 1}},
		{"negative amount", expense.CreateInput{Date: "2025-05-09", Category: "food", Amount: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", tt.in)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Create() error = %v; want ErrInvalidInput", err)
			}
		})
	}
}

func TestList_RangeAndOrder(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	for _, in := range []expense.CreateInput{
		{Date: "2025-05-01", Category: "food", Amount: 100},
		{Date: "2025-05-03", Category: "transport", Amount: 200},
		{Date: "2025-05-02", Category: "food", Amount: 300},
		{Date: "2025-05-20", Category: "food", Amount: 400},
	} {
		if _, err := svc.Create(ctx, "u1", in); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := svc.Create(ctx, "u2", expense.CreateInput{Date: "2025-05-02", Category: "food", Amount: 999}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r, err := svc.ParseRange("2025-05-01", "2025-05-03")
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	list, err := svc.List(ctx, "u1", r)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d expenses; want 3", len(list))
	}
	wantAmounts := []int64{200, 300, 100}
	for i, e := range list {
		if e.Amount != wantAmounts[i] {
			t.Errorf("list[%d].Amount = %d; want %d", i, e.Amount, wantAmounts[i])
		}
	}
}

func TestParseRange_Default(t *testing.T) {
	svc := newService(t, nil)

	for _, args := range [][2]string{{"", ""}, {"2025-05-01", ""}, {"", "2025-05-01"}} {
		r, err := svc.ParseRange(args[0], args[1])
		if err != nil {
			t.Fatalf("ParseRange(%q, %q) error = %v", args[0], args[1], err)
		}
		wantFrom := time.Date(2025, 5, 4, 0, 0, 0, 0, seoul)
		wantTo := time.Date(2025, 5, 10, 23, 59, 59, int(999*time.Millisecond), seoul)
		if !r.From.Equal(wantFrom) || !r.To.Equal(wantTo) {
			t.Errorf("ParseRange(%q, %q) = %v..%v; want %v..%v", args[0], args[1], r.From, r.To, wantFrom, wantTo)
		}
	}
}

func TestParseRange_Invalid(t *testing.T) {
	svc := newService(t, nil)

	if _, err := svc.ParseRange("2025-13-01", "2025-05-01"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ParseRange() error = %v; want ErrInvalidInput", err)
	}
	if _, err := svc.ParseRange("2025-05-01", "tomorrow"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ParseRange() error = %v; want ErrInvalidInput", err)
	}
}

func TestDelete(t *testing.T) {
	var published []string
	pub := events.PublisherFunc(func(_ context.Context, ev domain.Event) error {
		published = append(published, ev.Type)
		return nil
	})
	svc := newService(t, pub)
	ctx := context.Background()

	e, err := svc.Create(ctx, "u1", expense.CreateInput{Date: "2025-05-09", Category: "food", Amount: 1})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, "u2", e.ID); err != nil {
		t.Errorf("Delete() by non-owner error = %v", err)
	}
	r, _ := svc.ParseRange("", "")
	if list, _ := svc.List(ctx, "u1", r); len(list) != 1 {
		t.Fatal("non-owner delete must not remove the expense")
	}

	if err := svc.Delete(ctx, "u1", e.ID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "u1", e.ID); err != nil {
		t.Errorf("repeat Delete() error = %v", err)
	}
	if list, _ := svc.List(ctx, "u1", r); len(list) != 0 {
		t.Errorf("List() after delete = %d items", len(list))
	}

	want := []string{domain.EventExpenseCreated, domain.EventExpenseDeleted}
	if len(published) != len(want) || published[1] != want[1] {
		t.Errorf("published = %v; want %v", published, want)
	}
}

func TestCreate_PublishFailureIgnored(t *testing.T) {
	pub := events.PublisherFunc(func(context.Context, domain.Event) error {
		return errors.New("broker down")
	})
	svc := newService(t, pub)

	if _, err := svc.Create(context.Background(), "u1", expense.CreateInput{Date: "2025-05-09", Category: "food", Amount: 1}); err != nil {
		t.Errorf("Create() error = %v", err)
	}
}
