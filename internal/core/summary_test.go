package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMonthlyReportByCategory(t *testing.T) {
	r := MonthlyReport{
		Costs: []CostDetail{
			{Category: "FOOD", Converted: decimal.NewFromInt(340)},
			{Category: "FOOD", Converted: decimal.NewFromInt(170)},
			{Category: "TRANSPORT", Converted: decimal.NewFromInt(68)},
		},
	}
	got := r.ByCategory()
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %v", got)
	}
	if got[0].Name != "FOOD" || !got[0].Amount.Equal(decimal.NewFromInt(510)) {
		t.Fatalf("unexpected FOOD group: %+v", got[0])
	}
	if got[1].Name != "TRANSPORT" || !got[1].Amount.Equal(decimal.NewFromInt(68)) {
		t.Fatalf("unexpected TRANSPORT group: %+v", got[1])
	}
}

func TestYearlyReportIsEmpty(t *testing.T) {
	var y YearlyReport
	if !y.IsEmpty() {
		t.Fatalf("zero report should be empty")
	}
	y.MonthlyTotals[2] = decimal.NewFromInt(120)
	if y.IsEmpty() {
		t.Fatalf("report with data should not be empty")
	}
}

func TestStorageErrorMatching(t *testing.T) {
	err := fmt.Errorf("add cost: %w", WriteError("insert", errors.New("disk full")))
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected write error match")
	}
	if errors.Is(err, ErrStorageRead) {
		t.Fatalf("write error must not match read")
	}
}
