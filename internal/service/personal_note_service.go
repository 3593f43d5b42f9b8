package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/clock"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util"
)

// PersonalNoteService handles direct admin-to-staff messaging. Notes live
// outside the complaint lifecycle; delivery notifications ride the same
// event bus as complaint events.
type PersonalNoteService struct {
	notes      repository.PersonalNoteRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	clk        clock.Clock
}

// PersonalNoteDependencies bundles collaborators.
type PersonalNoteDependencies struct {
	NoteRepo   repository.PersonalNoteRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Clock      clock.Clock
}

// NewPersonalNoteService constructs the service.
func NewPersonalNoteService(deps PersonalNoteDependencies) *PersonalNoteService {
	return &PersonalNoteService{
		notes:      deps.NoteRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		clk:        deps.Clock,
	}
}

// Send delivers a note from an admin to a staff member. The sender must
// hold the send capability and the recipient must be a staff role that can
// read personal notes; plain users are never valid recipients.
func (s *PersonalNoteService) Send(ctx context.Context, senderID, recipientID, message string) (*domain.PersonalNote, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}

	sender, err := s.getUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !sender.Role.Can(domain.CapSendPersonalNotes) {
		return nil, apperrors.NewForbidden("only admins can send personal notes")
	}

	recipient, err := s.getUser(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !recipient.Role.Can(domain.CapReadPersonalNotes) {
		return nil, apperrors.NewConflict("personal notes can only be sent to staff members",
			map[string]any{"user_id": recipient.ID})
	}

	note := &domain.PersonalNote{
		Message:     message,
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		CreatedAt:   s.clk.Now(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		ID:      uuid.NewString(),
		Type:    events.EventPersonalNoteSent,
		ActorID: &sender.ID,
		Payload: events.PersonalNoteSentPayload{
			NoteID:         note.ID,
			Message:        note.Message,
			SenderName:     sender.Name,
			RecipientID:    recipient.ID,
			RecipientName:  recipient.Name,
			RecipientEmail: recipient.Email,
		},
	})
	return note, nil
}

// NotesFor lists the recipient's notes, newest first.
func (s *PersonalNoteService) NotesFor(ctx context.Context, recipientID string, limit, offset int) ([]domain.PersonalNote, error) {
	notes, err := s.notes.ListForRecipient(ctx, recipientID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

// SentBy lists the notes an admin has sent, newest first.
func (s *PersonalNoteService) SentBy(ctx context.Context, senderID string, limit, offset int) ([]domain.PersonalNote, error) {
	notes, err := s.notes.ListFromSender(ctx, senderID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

// Unread lists the recipient's unread notes.
func (s *PersonalNoteService) Unread(ctx context.Context, recipientID string) ([]domain.PersonalNote, error) {
	notes, err := s.notes.ListUnread(ctx, recipientID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

// UnreadCount counts the recipient's unread notes.
func (s *PersonalNoteService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.notes.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// MarkRead acknowledges a note. Only the recipient may acknowledge it, and
// the read timestamp is stamped on the first acknowledgement only.
func (s *PersonalNoteService) MarkRead(ctx context.Context, noteID, readerID string) (*domain.PersonalNote, error) {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.RecipientID != readerID {
		return nil, apperrors.NewForbidden("note belongs to another recipient")
	}

	if err := s.notes.MarkRead(ctx, note.ID, s.clk.Now()); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.getNote(ctx, noteID)
}

// Delete removes a note. Only the sender may delete it.
func (s *PersonalNoteService) Delete(ctx context.Context, noteID, senderID string) error {
	note, err := s.getNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.SenderID != senderID {
		return apperrors.NewForbidden("only the sender can delete a note")
	}
	if err := s.notes.Delete(ctx, note.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *PersonalNoteService) getNote(ctx context.Context, id string) (*domain.PersonalNote, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("personal note", map[string]any{"note_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return note, nil
}

func (s *PersonalNoteService) getUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *PersonalNoteService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clk.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
