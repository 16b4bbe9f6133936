package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/entitlement"
	"app/internal/model"

	"github.com/rs/zerolog"
)

func newTemplateServiceForTest(ledger *fakeLedgerRepo) (TemplateService, *fakeTemplateRepo) {
	repo := &fakeTemplateRepo{}
	usage := NewUsageService(ledger, zerolog.Nop())
	return NewTemplateService(repo, usage, zerolog.Nop()), repo
}

func validTemplate(name string) *model.Template {
	client := "Acme Corp"
	matter := "Contract review"
	hours := 0.5
	return &model.Template{
		Name:   name,
		Client: &client,
		Matter: &matter,
		Hours:  &hours,
		Tags:   []string{"drafting"},
	}
}

func TestFreeTierTemplateCap(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0)
	svc, repo := newTemplateServiceForTest(ledger)

	for i := 0; i < entitlement.FreeTemplateLimit; i++ {
		if _, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("tpl")); err != nil {
			t.Fatalf("template %d rejected: %v", i+1, err)
		}
	}

	_, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("one too many"))
	var lErr *LimitError
	if !errors.As(err, &lErr) || !lErr.Upgrade {
		t.Fatalf("got %v, want upgrade limit error", err)
	}
	if len(repo.templates) != entitlement.FreeTemplateLimit {
		t.Fatalf("repo has %d templates, want %d", len(repo.templates), entitlement.FreeTemplateLimit)
	}
}

func TestDeleteFreesTemplateSlot(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0)
	svc, _ := newTemplateServiceForTest(ledger)

	var last *model.Template
	for i := 0; i < entitlement.FreeTemplateLimit; i++ {
		created, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("tpl"))
		if err != nil {
			t.Fatal(err)
		}
		last = created
	}

	if err := svc.DeleteTemplate(context.Background(), last.ID, "user-1"); err != nil {
		t.Fatal(err)
	}
	// The cap is on the live count, so the freed slot is usable right away.
	if _, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("replacement")); err != nil {
		t.Fatalf("create after delete rejected: %v", err)
	}
}

func TestProTierUnlimitedTemplates(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierPro, model.StatusTrialing, 0, 0)
	svc, _ := newTemplateServiceForTest(ledger)

	for i := 0; i < entitlement.FreeTemplateLimit+5; i++ {
		if _, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("tpl")); err != nil {
			t.Fatalf("pro template %d rejected: %v", i+1, err)
		}
	}
}

func TestDuplicateTemplateCountsAgainstCap(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0)
	svc, _ := newTemplateServiceForTest(ledger)

	src, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("Deposition prep"))
	if err != nil {
		t.Fatal(err)
	}

	dup, err := svc.DuplicateTemplate(context.Background(), src.ID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if dup.Name != "Deposition prep (copy)" {
		t.Fatalf("copy named %q", dup.Name)
	}
	if dup.ID == src.ID {
		t.Fatal("copy reused the source id")
	}

	// Two live plus one more fills the cap; the next duplicate is denied.
	if _, err := svc.CreateTemplate(context.Background(), "user-1", validTemplate("filler")); err != nil {
		t.Fatal(err)
	}
	_, err = svc.DuplicateTemplate(context.Background(), src.ID, "user-1")
	var lErr *LimitError
	if !errors.As(err, &lErr) {
		t.Fatalf("got %v, want limit error", err)
	}
}

func TestTemplateValidation(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierPro, model.StatusActive, 0, 0)
	svc, _ := newTemplateServiceForTest(ledger)

	tpl := validTemplate("  ")
	if _, err := svc.CreateTemplate(context.Background(), "user-1", tpl); err == nil {
		t.Fatal("blank name accepted")
	}

	tpl = validTemplate("bad hours")
	bad := 25.0
	tpl.Hours = &bad
	_, err := svc.CreateTemplate(context.Background(), "user-1", tpl)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "hours" {
		t.Fatalf("got %v, want hours validation error", err)
	}

	// Hours are optional on templates.
	tpl = validTemplate("no hours")
	tpl.Hours = nil
	if _, err := svc.CreateTemplate(context.Background(), "user-1", tpl); err != nil {
		t.Fatalf("template without hours rejected: %v", err)
	}
}

func TestTemplateNotFound(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0)
	svc, _ := newTemplateServiceForTest(ledger)

	if err := svc.DeleteTemplate(context.Background(), "ghost", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: got %v, want ErrNotFound", err)
	}
	if _, err := svc.DuplicateTemplate(context.Background(), "ghost", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("duplicate: got %v, want ErrNotFound", err)
	}
	tpl := validTemplate("renamed")
	tpl.ID = "ghost"
	if _, err := svc.UpdateTemplate(context.Background(), "user-1", tpl); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: got %v, want ErrNotFound", err)
	}
}
