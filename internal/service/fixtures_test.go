package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/repository"
)

// memComplaintRepo mimics the Postgres-backed repository: reads hand out
// copies, Create and Save each commit the row and its audit records in one
// step.
type memComplaintRepo struct {
	mu         sync.Mutex
	seq        int64
	byCode     map[string]domain.Complaint
	audits     map[string][]domain.StatusUpdate
	saveCalls  int
	failSave   map[string]error
	failCreate error
}

func newMemComplaintRepo() *memComplaintRepo {
	return &memComplaintRepo{
		byCode:   map[string]domain.Complaint{},
		audits:   map[string][]domain.StatusUpdate{},
		failSave: map[string]error{},
	}
}

func (r *memComplaintRepo) Create(_ context.Context, complaint *domain.Complaint, updates []*domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	if complaint.ID == "" {
		complaint.ID = fmt.Sprintf("complaint-%d", len(r.byCode)+1)
	}
	r.byCode[complaint.Code] = *complaint
	r.appendAudits(complaint.ID, updates)
	return nil
}

func (r *memComplaintRepo) Save(_ context.Context, complaint *domain.Complaint, updates []*domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSave[complaint.Code]; err != nil {
		return err
	}
	if _, ok := r.byCode[complaint.Code]; !ok {
		return pgx.ErrNoRows
	}
	r.saveCalls++
	stored := *complaint
	stored.Updates = nil
	stored.Attachments = nil
	r.byCode[complaint.Code] = stored
	r.appendAudits(complaint.ID, updates)
	return nil
}

func (r *memComplaintRepo) appendAudits(complaintID string, updates []*domain.StatusUpdate) {
	for _, update := range updates {
		update.ComplaintID = complaintID
		update.ID = fmt.Sprintf("update-%d", len(r.audits[complaintID])+1)
		r.audits[complaintID] = append(r.audits[complaintID], *update)
	}
}

func (r *memComplaintRepo) GetByCode(_ context.Context, code string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byCode[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *memComplaintRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Complaint
	for _, c := range r.byCode {
		if c.UserID != nil && *c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memComplaintRepo) ListWithFilter(_ context.Context, _ repository.ComplaintFilter) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Complaint
	for _, c := range r.byCode {
		out = append(out, c)
	}
	return out, nil
}

func (r *memComplaintRepo) ListEscalationCandidates(_ context.Context, cutoff time.Time) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Complaint
	for _, c := range r.byCode {
		if !c.CreatedAt.Before(cutoff) {
			continue
		}
		if c.Status == domain.StatusEscalated || c.Status.IsTerminal() {
			continue
		}
		if c.SubmissionType != domain.SubmissionPublic {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memComplaintRepo) ListCreatedBetween(_ context.Context, from, to time.Time) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Complaint
	for _, c := range r.byCode {
		if c.CreatedAt.Before(from) || c.CreatedAt.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memComplaintRepo) CountByStatuses(_ context.Context, statuses []domain.ComplaintStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.byCode {
		for _, status := range statuses {
			if c.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *memComplaintRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byCode)), nil
}

func (r *memComplaintRepo) AverageResolutionDays(_ context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var totalDays float64
	var counted int
	for _, c := range r.byCode {
		if !c.Status.IsTerminal() || c.ResolvedAt == nil {
			continue
		}
		totalDays += c.ResolvedAt.Sub(c.CreatedAt).Hours() / 24
		counted++
	}
	if counted == 0 {
		return 0, nil
	}
	return totalDays / float64(counted), nil
}

func (r *memComplaintRepo) NextCodeSeq(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *memComplaintRepo) auditTrail(complaintID string) []domain.StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StatusUpdate{}, r.audits[complaintID]...)
}

// memUserRepo is a map-backed user store.
type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]domain.User
}

func newMemUserRepo(users ...domain.User) *memUserRepo {
	repo := &memUserRepo{byID: map[string]domain.User{}}
	for _, user := range users {
		repo.byID[user.ID] = user
	}
	return repo
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.byID)+1)
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) ListByRoles(_ context.Context, roles []domain.Role) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.byID {
		for _, role := range roles {
			if user.Role == role {
				out = append(out, user)
				break
			}
		}
	}
	return out, nil
}

// memStatusUpdateRepo reads the audit entries written through the complaint
// repo.
type memStatusUpdateRepo struct {
	complaints *memComplaintRepo
}

func (r *memStatusUpdateRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.StatusUpdate, error) {
	return r.complaints.auditTrail(complaintID), nil
}

// memAttachmentRepo stores attachment metadata.
type memAttachmentRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Attachment
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{byID: map[string]domain.Attachment{}}
}

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attachment.ID == "" {
		attachment.ID = fmt.Sprintf("attachment-%d", len(r.byID)+1)
	}
	r.byID[attachment.ID] = *attachment
	return nil
}

func (r *memAttachmentRepo) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attachment, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := attachment
	return &copied, nil
}

func (r *memAttachmentRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, attachment := range r.byID {
		if attachment.ComplaintID == complaintID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

// memPersonalNoteRepo stores admin-to-staff notes.
type memPersonalNoteRepo struct {
	mu   sync.Mutex
	byID map[string]domain.PersonalNote
}

func newMemPersonalNoteRepo() *memPersonalNoteRepo {
	return &memPersonalNoteRepo{byID: map[string]domain.PersonalNote{}}
}

func (r *memPersonalNoteRepo) Create(_ context.Context, note *domain.PersonalNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if note.ID == "" {
		note.ID = fmt.Sprintf("note-%d", len(r.byID)+1)
	}
	r.byID[note.ID] = *note
	return nil
}

func (r *memPersonalNoteRepo) GetByID(_ context.Context, id string) (*domain.PersonalNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	note, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := note
	return &copied, nil
}

func (r *memPersonalNoteRepo) ListForRecipient(_ context.Context, recipientID string, _, _ int) ([]domain.PersonalNote, error) {
	return r.filter(func(n domain.PersonalNote) bool { return n.RecipientID == recipientID }), nil
}

func (r *memPersonalNoteRepo) ListFromSender(_ context.Context, senderID string, _, _ int) ([]domain.PersonalNote, error) {
	return r.filter(func(n domain.PersonalNote) bool { return n.SenderID == senderID }), nil
}

func (r *memPersonalNoteRepo) ListUnread(_ context.Context, recipientID string) ([]domain.PersonalNote, error) {
	return r.filter(func(n domain.PersonalNote) bool { return n.RecipientID == recipientID && !n.IsRead }), nil
}

func (r *memPersonalNoteRepo) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	unread, _ := r.ListUnread(ctx, recipientID)
	return int64(len(unread)), nil
}

func (r *memPersonalNoteRepo) MarkRead(_ context.Context, id string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	note, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	note.IsRead = true
	if note.ReadAt == nil {
		note.ReadAt = &readAt
	}
	r.byID[id] = note
	return nil
}

func (r *memPersonalNoteRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *memPersonalNoteRepo) filter(keep func(domain.PersonalNote) bool) []domain.PersonalNote {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PersonalNote
	for _, note := range r.byID {
		if keep(note) {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// memEmployeeRequestRepo stores staff-access petitions.
type memEmployeeRequestRepo struct {
	mu   sync.Mutex
	byID map[string]domain.EmployeeRequest
}

func newMemEmployeeRequestRepo() *memEmployeeRequestRepo {
	return &memEmployeeRequestRepo{byID: map[string]domain.EmployeeRequest{}}
}

func (r *memEmployeeRequestRepo) Create(_ context.Context, request *domain.EmployeeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID == "" {
		request.ID = fmt.Sprintf("request-%d", len(r.byID)+1)
	}
	r.byID[request.ID] = *request
	return nil
}

func (r *memEmployeeRequestRepo) GetByID(_ context.Context, id string) (*domain.EmployeeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := request
	return &copied, nil
}

func (r *memEmployeeRequestRepo) List(_ context.Context, status *domain.EmployeeRequestStatus, _, _ int) ([]domain.EmployeeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EmployeeRequest
	for _, request := range r.byID {
		if status != nil && request.Status != *status {
			continue
		}
		out = append(out, request)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (r *memEmployeeRequestRepo) Update(_ context.Context, request *domain.EmployeeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[request.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.byID[request.ID] = *request
	return nil
}

func (r *memEmployeeRequestRepo) CountByStatus(_ context.Context, status domain.EmployeeRequestStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, request := range r.byID {
		if request.Status == status {
			count++
		}
	}
	return count, nil
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
