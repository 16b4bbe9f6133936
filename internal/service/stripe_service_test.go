package service

import (
	"testing"

	"app/internal/config"
	"app/internal/model"

	"github.com/rs/zerolog"
)

func TestTierForPriceFailsClosed(t *testing.T) {
	cfg := &config.Config{
		StripePriceProMonthly: "price_pro_monthly",
		StripePriceProAnnual:  "price_pro_annual",
	}
	svc := NewStripeService(cfg, &fakeUserRepo{}, &fakeLedgerRepo{}, zerolog.Nop())

	if got := svc.tierForPrice("price_pro_monthly"); got != model.TierPro {
		t.Fatalf("monthly price mapped to %s", got)
	}
	if got := svc.tierForPrice("price_pro_annual"); got != model.TierPro {
		t.Fatalf("annual price mapped to %s", got)
	}
	// A price we do not sell must never grant pro.
	if got := svc.tierForPrice("price_from_another_account"); got != model.TierFree {
		t.Fatalf("unknown price mapped to %s, want free", got)
	}
	if got := svc.tierForPrice(""); got != model.TierFree {
		t.Fatalf("empty price mapped to %s, want free", got)
	}
}
