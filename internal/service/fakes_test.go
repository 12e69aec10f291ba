package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/advocate-booking/internal/gateway"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
)

// memState is the whole database of the in-memory store.
type memState struct {
	nextID        uint64
	advocates     map[uint64]model.AdvocateProfile
	names         map[uint64]string
	appointments  map[uint64]model.Appointment
	cases         map[uint64]model.Case
	hearings      map[uint64]model.CaseHearing
	documents     map[uint64]model.CaseDocument
	payments      map[uint64]model.Payment
	refunds       map[uint64]model.Refund
	reviews       map[uint64]model.Review
	notifications map[uint64]model.Notification
	chatRooms     map[uint64]model.ChatRoom
	chatMessages  map[uint64]model.ChatMessage
}

func newMemState() *memState {
	return &memState{
		advocates:     map[uint64]model.AdvocateProfile{},
		names:         map[uint64]string{},
		appointments:  map[uint64]model.Appointment{},
		cases:         map[uint64]model.Case{},
		hearings:      map[uint64]model.CaseHearing{},
		documents:     map[uint64]model.CaseDocument{},
		payments:      map[uint64]model.Payment{},
		refunds:       map[uint64]model.Refund{},
		reviews:       map[uint64]model.Review{},
		notifications: map[uint64]model.Notification{},
		chatRooms:     map[uint64]model.ChatRoom{},
		chatMessages:  map[uint64]model.ChatMessage{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		nextID:        s.nextID,
		advocates:     cloneMap(s.advocates),
		names:         cloneMap(s.names),
		appointments:  cloneMap(s.appointments),
		cases:         cloneMap(s.cases),
		hearings:      cloneMap(s.hearings),
		documents:     cloneMap(s.documents),
		payments:      cloneMap(s.payments),
		refunds:       cloneMap(s.refunds),
		reviews:       cloneMap(s.reviews),
		notifications: cloneMap(s.notifications),
		chatRooms:     cloneMap(s.chatRooms),
		chatMessages:  cloneMap(s.chatMessages),
	}
}

func (s *memState) id() uint64 {
	s.nextID++
	return s.nextID
}

// memStore serializes units of work with one mutex, which is at least as
// strict as the row locks the MySQL store takes, and restores a snapshot
// when fn fails.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore { return &memStore{state: newMemState()} }

func (m *memStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	if err := fn(&memTx{s: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// read gives tests direct access to the committed state.
func (m *memStore) read(fn func(s *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

type memTx struct{ s *memState }

var _ repository.Tx = (*memTx)(nil)

func (t *memTx) GetAdvocate(_ context.Context, id uint64) (*model.AdvocateProfile, error) {
	a, ok := t.s.advocates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) LockAdvocate(ctx context.Context, id uint64) (*model.AdvocateProfile, error) {
	return t.GetAdvocate(ctx, id)
}

func (t *memTx) SetAdvocateVerified(_ context.Context, id uint64, verified bool) error {
	a, ok := t.s.advocates[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Verified = verified
	t.s.advocates[id] = a
	return nil
}

func (t *memTx) summary(a model.AdvocateProfile) model.AdvocateSummary {
	sum := model.AdvocateSummary{
		ID: a.ID, FullName: t.s.names[a.ID], Specialization: a.Specialization,
		ExperienceYears: a.ExperienceYears, ConsultationFeeCents: a.ConsultationFeeCents, Verified: a.Verified,
	}
	total := 0
	for _, r := range t.s.reviews {
		if r.AdvocateID == a.ID {
			sum.ReviewCount++
			total += r.Rating
		}
	}
	if sum.ReviewCount > 0 {
		sum.AverageRating = float64(total) / float64(sum.ReviewCount)
	}
	return sum
}

func (t *memTx) ListAdvocates(_ context.Context, verifiedOnly bool) ([]model.AdvocateSummary, error) {
	out := []model.AdvocateSummary{}
	for _, a := range t.s.advocates {
		if verifiedOnly && !a.Verified {
			continue
		}
		out = append(out, t.summary(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) GetAdvocateSummary(_ context.Context, id uint64) (*model.AdvocateSummary, error) {
	a, ok := t.s.advocates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	sum := t.summary(a)
	return &sum, nil
}

// slotTaken mirrors the slot_guard unique key.
func (t *memTx) slotTaken(a *model.Appointment) bool {
	if !a.IsActive || !a.Status.Blocking() {
		return false
	}
	for _, o := range t.s.appointments {
		if o.ID != a.ID && o.AdvocateID == a.AdvocateID && o.Date.Equal(a.Date) &&
			o.StartTime == a.StartTime && o.IsActive && o.Status.Blocking() {
			return true
		}
	}
	return false
}

func (t *memTx) InsertAppointment(_ context.Context, a *model.Appointment) error {
	if t.slotTaken(a) {
		return repository.ErrDuplicate
	}
	a.ID = t.s.id()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	t.s.appointments[a.ID] = *a
	return nil
}

func (t *memTx) GetAppointment(_ context.Context, id uint64, _ bool) (*model.Appointment, error) {
	a, ok := t.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	cur, ok := t.s.appointments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.slotTaken(a) {
		return repository.ErrDuplicate
	}
	cur.Date, cur.StartTime, cur.DurationMinutes = a.Date, a.StartTime, a.DurationMinutes
	cur.Remarks, cur.Status, cur.IsPaid, cur.IsActive = a.Remarks, a.Status, a.IsPaid, a.IsActive
	cur.UpdatedAt = time.Now().UTC()
	t.s.appointments[a.ID] = cur
	return nil
}

func (t *memTx) BlockingAppointmentsOn(_ context.Context, advocateID uint64, date time.Time, excludeID uint64) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range t.s.appointments {
		if a.AdvocateID == advocateID && a.Date.Equal(date) && a.IsActive && a.Status.Blocking() && a.ID != excludeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (t *memTx) ListAppointments(_ context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	out := []model.Appointment{}
	for _, a := range t.s.appointments {
		if f.ClientID != 0 && a.ClientID != f.ClientID ||
			f.AdvocateID != 0 && a.AdvocateID != f.AdvocateID ||
			f.Status != "" && a.Status != f.Status ||
			f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memTx) InsertCase(_ context.Context, c *model.Case) error {
	for _, o := range t.s.cases {
		if o.AppointmentID == c.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	c.ID = t.s.id()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	t.s.cases[c.ID] = *c
	return nil
}

func (t *memTx) GetCase(_ context.Context, id uint64, _ bool) (*model.Case, error) {
	c, ok := t.s.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) UpdateCaseStatus(_ context.Context, id uint64, status model.CaseStatus) error {
	c, ok := t.s.cases[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	t.s.cases[id] = c
	return nil
}

func (t *memTx) ListCases(_ context.Context, f model.CaseFilter) ([]model.Case, error) {
	out := []model.Case{}
	for _, c := range t.s.cases {
		if f.ClientID != 0 && c.ClientID != f.ClientID || f.AdvocateID != 0 && c.AdvocateID != f.AdvocateID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memTx) InsertHearing(_ context.Context, h *model.CaseHearing) error {
	h.ID = t.s.id()
	h.CreatedAt = time.Now().UTC()
	t.s.hearings[h.ID] = *h
	return nil
}

func (t *memTx) ListHearings(_ context.Context, caseID uint64) ([]model.CaseHearing, error) {
	out := []model.CaseHearing{}
	for _, h := range t.s.hearings {
		if h.CaseID == caseID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertDocument(_ context.Context, d *model.CaseDocument) error {
	d.ID = t.s.id()
	d.CreatedAt = time.Now().UTC()
	t.s.documents[d.ID] = *d
	return nil
}

func (t *memTx) ListDocuments(_ context.Context, caseID uint64) ([]model.CaseDocument, error) {
	out := []model.CaseDocument{}
	for _, d := range t.s.documents {
		if d.CaseID == caseID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memTx) GetDocument(_ context.Context, id uint64) (*model.CaseDocument, error) {
	d, ok := t.s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (t *memTx) InsertPayment(_ context.Context, p *model.Payment) error {
	for _, o := range t.s.payments {
		if o.AppointmentID == p.AppointmentID || o.GatewayOrderID == p.GatewayOrderID {
			return repository.ErrDuplicate
		}
	}
	p.ID = t.s.id()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	t.s.payments[p.ID] = *p
	return nil
}

func (t *memTx) findPayment(match func(model.Payment) bool) (*model.Payment, error) {
	for _, p := range t.s.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *memTx) GetPayment(_ context.Context, id uint64, _ bool) (*model.Payment, error) {
	return t.findPayment(func(p model.Payment) bool { return p.ID == id })
}

func (t *memTx) GetPaymentByOrder(_ context.Context, orderID string, _ bool) (*model.Payment, error) {
	return t.findPayment(func(p model.Payment) bool { return p.GatewayOrderID == orderID })
}

func (t *memTx) GetPaymentByAppointment(_ context.Context, appointmentID uint64) (*model.Payment, error) {
	return t.findPayment(func(p model.Payment) bool { return p.AppointmentID == appointmentID })
}

// RecordPaymentOutcome ignores AmountCents like the SQL statement does.
func (t *memTx) RecordPaymentOutcome(_ context.Context, p *model.Payment) error {
	cur, ok := t.s.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status, cur.GatewayPaymentID, cur.GatewaySignature = p.Status, p.GatewayPaymentID, p.GatewaySignature
	t.s.payments[p.ID] = cur
	return nil
}

func (t *memTx) InsertRefund(_ context.Context, r *model.Refund) error {
	for _, o := range t.s.refunds {
		if o.PaymentID == r.PaymentID {
			return repository.ErrDuplicate
		}
	}
	r.ID = t.s.id()
	r.CreatedAt = time.Now().UTC()
	t.s.refunds[r.ID] = *r
	return nil
}

func (t *memTx) PaymentStats(_ context.Context) (model.PaymentStats, error) {
	var st model.PaymentStats
	for _, p := range t.s.payments {
		st.TotalPayments++
		switch p.Status {
		case model.PaymentSuccess:
			st.SuccessfulPayments++
			st.RevenueCents += p.AmountCents
		case model.PaymentRefunded:
			st.Refunds++
		}
	}
	return st, nil
}

func (t *memTx) InsertReview(_ context.Context, r *model.Review) error {
	if r.AppointmentID != nil {
		for _, o := range t.s.reviews {
			if o.ClientID == r.ClientID && o.AppointmentID != nil && *o.AppointmentID == *r.AppointmentID {
				return repository.ErrDuplicate
			}
		}
	}
	r.ID = t.s.id()
	r.CreatedAt = time.Now().UTC()
	t.s.reviews[r.ID] = *r
	return nil
}

func (t *memTx) ListReviews(_ context.Context, advocateID uint64) ([]model.Review, error) {
	out := []model.Review{}
	for _, r := range t.s.reviews {
		if r.AdvocateID == advocateID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) InsertNotification(_ context.Context, n *model.Notification) error {
	n.ID = t.s.id()
	t.s.notifications[n.ID] = *n
	return nil
}

func (t *memTx) ListNotifications(_ context.Context, userID uint64) ([]model.Notification, error) {
	out := []model.Notification{}
	for _, n := range t.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (t *memTx) MarkNotificationRead(_ context.Context, userID, id uint64) error {
	n, ok := t.s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	t.s.notifications[id] = n
	return nil
}

func (t *memTx) InsertChatRoom(_ context.Context, room *model.ChatRoom) error {
	for _, o := range t.s.chatRooms {
		if o.AppointmentID == room.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	room.ID = t.s.id()
	room.CreatedAt = time.Now().UTC()
	t.s.chatRooms[room.ID] = *room
	return nil
}

func (t *memTx) GetChatRoom(_ context.Context, id uint64) (*model.ChatRoom, error) {
	room, ok := t.s.chatRooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &room, nil
}

func (t *memTx) GetChatRoomByAppointment(_ context.Context, appointmentID uint64) (*model.ChatRoom, error) {
	for _, room := range t.s.chatRooms {
		if room.AppointmentID == appointmentID {
			return &room, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *memTx) InsertChatMessage(_ context.Context, m *model.ChatMessage) error {
	m.ID = t.s.id()
	m.CreatedAt = time.Now().UTC()
	t.s.chatMessages[m.ID] = *m
	return nil
}

func (t *memTx) ListChatMessages(_ context.Context, roomID, afterID uint64, limit int) ([]model.ChatMessage, error) {
	out := []model.ChatMessage{}
	for _, m := range t.s.chatMessages {
		if m.RoomID == roomID && m.ID > afterID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeGateway accepts callbacks signed "valid" and maps the transaction
// status the way Midtrans does for the common values.
type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	refundErr error
	orders    int
	refunds   []gateway.RefundRequest
	// onRefund runs before a refund is accepted, outside g.mu.
	onRefund func()
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orders++
	return &gateway.Order{OrderID: req.OrderID, Token: "tok", RedirectURL: "https://pay.example/" + req.OrderID}, nil
}

func (g *fakeGateway) VerifyCallback(_ context.Context, cb gateway.Callback, _ int64) (gateway.Outcome, error) {
	if cb.SignatureKey != "valid" {
		return gateway.OutcomePending, gateway.ErrInvalidSignature
	}
	switch cb.TransactionStatus {
	case "settlement", "capture":
		return gateway.OutcomeSuccess, nil
	case "deny", "expire", "cancel":
		return gateway.OutcomeFailed, nil
	}
	return gateway.OutcomePending, nil
}

func (g *fakeGateway) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	g.mu.Lock()
	hook := g.onRefund
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return &gateway.RefundResult{RefundID: req.Key}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
	err    error
}

func (n *fakeNotifier) Publish(_ context.Context, ev queue.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Title
	}
	return out
}

var errBroker = errors.New("broker down")
