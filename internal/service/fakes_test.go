package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/repository"
)

// fakeLedgerRepo mimics the conditional-update semantics of the real table
// against an in-memory ledger.
type fakeLedgerRepo struct {
	mu           sync.Mutex
	ledger       *model.UsageLedger
	incrementErr error
	decrements   int
}

func newFakeLedgerRepo(tier model.Tier, status model.Status, entries, exports int) *fakeLedgerRepo {
	return &fakeLedgerRepo{
		ledger: &model.UsageLedger{
			UserID:           "user-1",
			Tier:             tier,
			Status:           status,
			EntriesThisMonth: entries,
			ExportsThisMonth: exports,
			UsageResetDate:   firstOfMonth(time.Now()),
		},
	}
}

func (f *fakeLedgerRepo) GetLedger(ctx context.Context, userID string) (*model.UsageLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger == nil {
		return nil, nil
	}
	cp := *f.ledger
	return &cp, nil
}

func (f *fakeLedgerRepo) CreateLedger(ctx context.Context, userID string, resetDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger == nil {
		f.ledger = &model.UsageLedger{
			UserID:         userID,
			Tier:           model.TierFree,
			Status:         model.StatusActive,
			UsageResetDate: resetDate,
		}
	}
	return nil
}

func (f *fakeLedgerRepo) ResetIfStale(ctx context.Context, userID string, firstOfMonth time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger != nil && f.ledger.UsageResetDate.Before(firstOfMonth) {
		f.ledger.EntriesThisMonth = 0
		f.ledger.ExportsThisMonth = 0
		f.ledger.UsageResetDate = firstOfMonth
	}
	return nil
}

func (f *fakeLedgerRepo) IncrementEntries(ctx context.Context, userID string, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return false, f.incrementErr
	}
	if limit > 0 && f.ledger.EntriesThisMonth >= limit {
		return false, nil
	}
	f.ledger.EntriesThisMonth++
	return true, nil
}

func (f *fakeLedgerRepo) DecrementEntries(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
	if f.ledger.EntriesThisMonth > 0 {
		f.ledger.EntriesThisMonth--
	}
	return nil
}

func (f *fakeLedgerRepo) IncrementExports(ctx context.Context, userID string, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return false, f.incrementErr
	}
	if limit > 0 && f.ledger.ExportsThisMonth >= limit {
		return false, nil
	}
	f.ledger.ExportsThisMonth++
	return true, nil
}

func (f *fakeLedgerRepo) DecrementExports(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
	if f.ledger.ExportsThisMonth > 0 {
		f.ledger.ExportsThisMonth--
	}
	return nil
}

func (f *fakeLedgerRepo) ResetUsage(ctx context.Context, userID string, resetDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger == nil {
		return errors.New("no ledger")
	}
	f.ledger.EntriesThisMonth = 0
	f.ledger.ExportsThisMonth = 0
	f.ledger.UsageResetDate = resetDate
	return nil
}

func (f *fakeLedgerRepo) SetTier(ctx context.Context, userID string, tier model.Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger.Tier = tier
	return nil
}

func (f *fakeLedgerRepo) SetStatus(ctx context.Context, userID string, status model.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger.Status = status
	return nil
}

func (f *fakeLedgerRepo) ExtendTrial(ctx context.Context, userID string, trialEnd time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger.Status = model.StatusTrialing
	f.ledger.TrialEnd = &trialEnd
	return nil
}

func (f *fakeLedgerRepo) UpsertFromProvider(ctx context.Context, sub *model.UsageLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger == nil {
		cp := *sub
		f.ledger = &cp
		return nil
	}
	f.ledger.Tier = sub.Tier
	f.ledger.Status = sub.Status
	f.ledger.StripeCustomerID = sub.StripeCustomerID
	f.ledger.StripeSubscriptionID = sub.StripeSubscriptionID
	f.ledger.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	return nil
}

func (f *fakeLedgerRepo) entries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.EntriesThisMonth
}

// fakeBillableRepo stores billables in a slice, newest first by insertion.
type fakeBillableRepo struct {
	mu        sync.Mutex
	items     []model.Billable
	nextID    int
	createErr error
	listCalls int
}

func (f *fakeBillableRepo) ListPage(ctx context.Context, userID string, limit, offset int) ([]model.Billable, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := len(f.items)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]model.Billable(nil), f.items[offset:end]...), total, nil
}

func (f *fakeBillableRepo) ListRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]model.Billable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var inRange []model.Billable
	for _, b := range f.items {
		if !b.Date.Before(from) && !b.Date.After(to) {
			inRange = append(inRange, b)
		}
	}
	if offset >= len(inRange) {
		return nil, nil
	}
	end := offset + limit
	if end > len(inRange) {
		end = len(inRange)
	}
	return append([]model.Billable(nil), inRange[offset:end]...), nil
}

func (f *fakeBillableRepo) CountRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, b := range f.items {
		if !b.Date.Before(from) && !b.Date.After(to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeBillableRepo) CreateBillable(ctx context.Context, b *model.Billable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if b.ID == "" {
		f.nextID++
		b.ID = fmt.Sprintf("b-%d", f.nextID)
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	f.items = append([]model.Billable{*b}, f.items...)
	return nil
}

func (f *fakeBillableRepo) GetBillableByID(ctx context.Context, id, userID string) (*model.Billable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBillableRepo) UpdateBillable(ctx context.Context, b *model.Billable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == b.ID {
			f.items[i] = *b
			return nil
		}
	}
	return errors.New("no such row")
}

func (f *fakeBillableRepo) DeleteBillable(ctx context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakePublisher records published change events.
type fakePublisher struct {
	mu     sync.Mutex
	events []model.BillableChange
}

func (f *fakePublisher) Publish(userID string, change model.BillableChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, change)
}

func (f *fakePublisher) published() []model.BillableChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.BillableChange(nil), f.events...)
}

// fakeStore captures archived objects in memory.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://storage.example.com/" + key + "?signed=1", nil
}

// fakeAuditRepo records appended entries; insertErr simulates a broken table.
type fakeAuditRepo struct {
	mu        sync.Mutex
	entries   []model.AuditEntry
	insertErr error
}

func (f *fakeAuditRepo) InsertEntry(ctx context.Context, e *model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuditRepo) ListEntries(ctx context.Context, filter repository.AuditFilter, limit, offset int) ([]model.AuditEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AuditEntry(nil), f.entries...), len(f.entries), nil
}

// fakeUserRepo serves a fixed set of users.
type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	if f.users == nil {
		f.users = make(map[string]*model.User)
	}
	f.users[u.UserID] = u
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	if u, ok := f.users[userID]; ok {
		u.StripeCustomerID = &customerID
	}
	return nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

// fakeTemplateRepo stores templates in a map.
type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*model.Template
	nextID    int
}

func (f *fakeTemplateRepo) ListTemplates(ctx context.Context, userID string) ([]model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Template
	for _, t := range f.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTemplateRepo) CountTemplates(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.templates), nil
}

func (f *fakeTemplateRepo) CreateTemplate(ctx context.Context, t *model.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.templates == nil {
		f.templates = make(map[string]*model.Template)
	}
	if t.ID == "" {
		f.nextID++
		t.ID = fmt.Sprintf("tpl-%d", f.nextID)
	}
	cp := *t
	f.templates[t.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) GetTemplateByID(ctx context.Context, id, userID string) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplateRepo) UpdateTemplate(ctx context.Context, t *model.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.templates[t.ID]; !ok {
		return errors.New("no such row")
	}
	cp := *t
	f.templates[t.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) DeleteTemplate(ctx context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.templates[id]; !ok {
		return false, nil
	}
	delete(f.templates, id)
	return true, nil
}
