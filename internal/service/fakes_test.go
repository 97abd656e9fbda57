package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/events"
	"github.com/caosaude/solicitacoes/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	seq       int
	clock     time.Time
	rows      map[string]domain.Ticket
	listErr   error
	failIDs   map[string]bool
	positions int
}

func newFakeTicketRepo(tickets ...domain.Ticket) *fakeTicketRepo {
	r := &fakeTicketRepo{
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		rows:    map[string]domain.Ticket{},
		failIDs: map[string]bool{},
	}
	for _, t := range tickets {
		r.rows[t.ID] = t
	}
	return r
}

func (r *fakeTicketRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = fmt.Sprintf("t-%d", r.seq)
	t.CreatedAt = r.tick()
	t.UpdatedAt = t.CreatedAt
	r.rows[t.ID] = *t
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, t *domain.Ticket, expected *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[t.ID]
	if !ok {
		if expected != nil {
			return repository.ErrStaleTicket
		}
		return pgx.ErrNoRows
	}
	if expected != nil && !current.UpdatedAt.Equal(*expected) {
		return repository.ErrStaleTicket
	}
	t.UpdatedAt = r.tick()
	t.QueuePosition = current.QueuePosition
	r.rows[t.ID] = *t
	return nil
}

func (r *fakeTicketRepo) SetQueuePosition(_ context.Context, id string, position *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[id] {
		return errors.New("write refused")
	}
	current, ok := r.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	current.QueuePosition = position
	r.rows[id] = current
	r.positions++
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Ticket, 0, len(r.rows))
	for _, t := range r.rows {
		if filter.CreatedBy != nil && (t.CreatedBy == nil || *t.CreatedBy != *filter.CreatedBy) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeTicketRepo) get(id string) domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

type fakeTimelineRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.TimelineEvent
	err     error
}

func (r *fakeTimelineRepo) Create(_ context.Context, e *domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.seq++
	e.ID = fmt.Sprintf("ev-%d", r.seq)
	e.CreatedAt = time.Date(2024, 5, 1, 0, 0, r.seq, 0, time.UTC)
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeTimelineRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TimelineEvent
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeTimelineRepo) titles(ticketID string) []string {
	entries, _ := r.ListByTicket(context.Background(), ticketID)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}

type fakeAttachmentRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]domain.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{rows: map[string]domain.Attachment{}}
}

func (r *fakeAttachmentRepo) Create(_ context.Context, a *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("a-%d", r.seq)
	a.UploadedAt = time.Now().UTC()
	r.rows[a.ID] = *a
	return nil
}

func (r *fakeAttachmentRepo) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, a := range r.rows {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

type fakeProfileRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]domain.Profile
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{rows: map[string]domain.Profile{}}
	for _, p := range profiles {
		r.rows[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = fmt.Sprintf("p-%d", r.seq)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.rows[p.ID] = *p
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if strings.EqualFold(p.Email, email) {
			found := p
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Profile, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *fakeProfileRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.PasswordHash = hash
	r.rows[id] = p
	return nil
}

func (r *fakeProfileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

type fakeBlobs struct {
	removedPrefixes []string
}

func (b *fakeBlobs) DeletePrefix(prefix string) error {
	b.removedPrefixes = append(b.removedPrefixes, prefix)
	return nil
}

type recordingDispatcher struct {
	events.Dispatcher
	mu     sync.Mutex
	events []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, e events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, e)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	testManager   = &domain.Profile{ID: "m-1", Name: "Gestora", Email: "gestora@example.com", Role: domain.RoleManager}
	testRequester = &domain.Profile{ID: "r-1", Name: "Promotor", Email: "promotor@example.com", Role: domain.RoleRequester}
	otherUser     = &domain.Profile{ID: "r-2", Name: "Outro", Email: "outro@example.com", Role: domain.RoleRequester}
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func statusPtr(v domain.TicketStatus) *domain.TicketStatus { return &v }
