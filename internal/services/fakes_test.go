package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventgate/internal/domain"
)

// In-memory fakes shared by the service tests. They enforce the same
// uniqueness rules as the Postgres schema so concurrency tests exercise the
// real idempotency guards.

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.Event
	err    error
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	m := make(map[string]*domain.Event)
	for _, ev := range events {
		m[ev.ID] = ev
	}
	return &fakeEventRepo{events: m}
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

type fakeAttendanceRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Attendance
	nextID int
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{byID: make(map[string]*domain.Attendance)}
}

func (f *fakeAttendanceRepo) key(eventID, userID string) string { return eventID + ":" + userID }

func (f *fakeAttendanceRepo) CreateAdmit(ctx context.Context, att *domain.Attendance, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.byID {
		if a.EventID == att.EventID {
			if a.UserID == att.UserID {
				return domain.ErrAlreadyRegistered
			}
			count++
		}
	}
	if capacity > 0 && count >= capacity {
		return &domain.CapacityFullError{Capacity: capacity}
	}
	f.nextID++
	att.ID = fmt.Sprintf("att-%d", f.nextID)
	f.byID[att.ID] = att
	return nil
}

func (f *fakeAttendanceRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.EventID == eventID && a.UserID == userID {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAttendanceRepo) CountByEventID(ctx context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.byID {
		if a.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttendanceRepo) MarkCheckedIn(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != domain.AttendanceNotCheckedIn {
		return domain.ErrAlreadyCheckedIn
	}
	a.Status = domain.AttendanceCheckedIn
	a.TokenUsed = true
	a.CheckedInAt = &at
	return nil
}

func (f *fakeAttendanceRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeAttendanceRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Attendance
	for _, a := range f.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakePaymentRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Payment
	nextID int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: make(map[string]*domain.Payment)}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.EventID == p.EventID && existing.UserID == p.UserID && existing.Status == domain.PaymentPending {
			return domain.ErrDuplicatePayment
		}
	}
	f.nextID++
	p.ID = fmt.Sprintf("pay-%d", f.nextID)
	f.byID[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.InvoiceID == invoiceID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) GetPendingByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.EventID == eventID && p.UserID == userID && p.Status == domain.PaymentPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) GetPaidByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.EventID == eventID && p.UserID == userID && p.Status == domain.PaymentPaid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, paidAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != domain.PaymentPending {
		return nil
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	return nil
}

func (f *fakePaymentRepo) LinkAttendance(ctx context.Context, paymentID, attendanceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[paymentID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.AttendanceID != nil {
		return false, nil
	}
	p.AttendanceID = &attendanceID
	return true, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	m := make(map[string]*domain.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) add(u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	user.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	getErr    error
	status    domain.InvoiceStatus
	created   int
}

func (f *fakeGateway) CreateInvoice(ctx context.Context, amountCents int64, description, customerEmail string) (*domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	id := fmt.Sprintf("inv-%d", f.created)
	return &domain.Invoice{ID: id, URL: "https://gateway.test/pay/" + id}, nil
}

func (f *fakeGateway) GetInvoice(ctx context.Context, invoiceID string) (domain.InvoiceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	if f.status == "" {
		return domain.InvoicePending, nil
	}
	return f.status, nil
}

func (f *fakeGateway) setStatus(s domain.InvoiceStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

type fakeEmailService struct {
	mu       sync.Mutex
	sendErr  error
	tokens   []*domain.CheckInTokenEmailData
	receipts []*domain.PaymentReceiptEmailData
}

func (f *fakeEmailService) SendCheckInToken(ctx context.Context, data *domain.CheckInTokenEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.tokens = append(f.tokens, data)
	return nil
}

func (f *fakeEmailService) SendPaymentReceipt(ctx context.Context, data *domain.PaymentReceiptEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.receipts = append(f.receipts, data)
	return nil
}

func (f *fakeEmailService) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeEmailService) sentTokens() []*domain.CheckInTokenEmailData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.CheckInTokenEmailData(nil), f.tokens...)
}

func (f *fakeEmailService) sentReceipts() []*domain.PaymentReceiptEmailData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.PaymentReceiptEmailData(nil), f.receipts...)
}
