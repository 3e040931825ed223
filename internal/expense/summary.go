package expense

import (
	"context"
	"sort"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// CategoryTotal is the sum of expenses in one category
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// DayTotal is the sum of expenses on one calendar day
type DayTotal struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

// DayCategoryTotal is the sum of expenses in one category on one day
type DayCategoryTotal struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// Summary aggregates a range of expenses for charting
type Summary struct {
	ByCategory    []CategoryTotal    `json:"byCategory"`
	ByDay         []DayTotal         `json:"byDay"`
	ByDayCategory []DayCategoryTotal `json:"byDayCategory"`
	Range         domain.DateRange   `json:"range"`
}

// Summary totals the user's expenses in r by category, by day and by both.
// Day buckets use the service's time zone.
func (s *Service) Summary(ctx context.Context, userID string, r domain.DateRange) (*Summary, error) {
	list, err := s.List(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return Summarize(list, r, s.loc), nil
}

// Summarize aggregates expenses. Categories are ordered by descending total,
// days ascending, and day/category pairs by day then category.
func Summarize(list []*domain.Expense, r domain.DateRange, loc *time.Location) *Summary {
	type dayCat struct{ day, cat string }

	byCat := make(map[string]int64)
	byDay := make(map[string]int64)
	byDayCat := make(map[dayCat]int64)

	for _, e := range list {
		day := e.Date.In(loc).Format(domain.DayLayout)
		byCat[e.Category] += e.Amount
		byDay[day] += e.Amount
		byDayCat[dayCat{day, e.Category}] += e.Amount
	}

	sum := &Summary{
		ByCategory:    make([]CategoryTotal, 0, len(byCat)),
		ByDay:         make([]DayTotal, 0, len(byDay)),
		ByDayCategory: make([]DayCategoryTotal, 0, len(byDayCat)),
		Range:         r,
	}
	for c, total := range byCat {
		sum.ByCategory = append(sum.ByCategory, CategoryTotal{Category: c, Total: total})
	}
	for d, total := range byDay {
		sum.ByDay = append(sum.ByDay, DayTotal{Date: d, Total: total})
	}
	for k, total := range byDayCat {
		sum.ByDayCategory = append(sum.ByDayCategory, DayCategoryTotal{Date: k.day, Category: k.cat, Total: total})
	}

	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Category < b.Category
	})
	sort.Slice(sum.ByDay, func(i, j int) bool {
		return sum.ByDay[i].Date < sum.ByDay[j].Date
	})
	sort.Slice(sum.ByDayCategory, func(i, j int) bool {
		a, b := sum.ByDayCategory[i], sum.ByDayCategory[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Category < b.Category
	})

	return sum
}
