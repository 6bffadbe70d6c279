package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"costledger/internal/core"
	"costledger/internal/ledger"
	"costledger/internal/ledger/ledgertest"
)

func TestMemoryStoreContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return New(time.UTC) })
}

func TestMemoryStoreRejectsInvalidRecord(t *testing.T) {
	s := New(time.UTC)
	_, err := s.AddCost(context.Background(), core.CostRecord{
		Sum:      decimal.Zero,
		Currency: "USD",
		Category: "FOOD",
		DateISO:  time.Now(),
	})
	if !errors.Is(err, core.ErrInvalidSum) {
		t.Fatalf("expected ErrInvalidSum, got %v", err)
	}
	all, _ := s.GetAllRaw(context.Background())
	if len(all) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(all))
	}
}

func TestMemoryStoreGetAllReturnsCopy(t *testing.T) {
	s := New(time.UTC)
	_, _ = s.AddCost(context.Background(), ledgertest.Record(1, "USD", "FOOD", time.Now()))

	all, _ := s.GetAllRaw(context.Background())
	all[0].Category = "CHANGED"

	again, _ := s.GetAllRaw(context.Background())
	if again[0].Category != "FOOD" {
		t.Fatalf("store leaked internal slice")
	}
}
