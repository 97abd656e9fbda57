package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/events"
	"github.com/caosaude/solicitacoes/internal/repository"
	"github.com/caosaude/solicitacoes/internal/storage"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

// DefaultMaxAttachmentBytes caps uploads when no limit is configured.
const DefaultMaxAttachmentBytes int64 = 10 << 20

// BlobStore persists attachment content.
type BlobStore interface {
	SaveStream(key string, r io.Reader) (int64, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	DeletePrefix(prefix string) error
}

// ticketReader resolves a ticket the actor may see.
type ticketReader interface {
	GetTicket(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error)
}

// AttachmentService manages files attached to tickets.
type AttachmentService struct {
	tickets     ticketReader
	attachments repository.AttachmentRepository
	blobs       BlobStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	maxBytes    int64
	now         func() time.Time
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	Tickets        ticketReader
	AttachmentRepo repository.AttachmentRepository
	Blobs          BlobStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	MaxBytes       int64
}

// AttachmentUpload describes an incoming file.
type AttachmentUpload struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &AttachmentService{
		tickets:     deps.Tickets,
		attachments: deps.AttachmentRepo,
		blobs:       deps.Blobs,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		maxBytes:    maxBytes,
		now:         time.Now,
	}
}

// Upload stores the file and records its metadata. Anyone who can see the
// ticket may attach to it.
func (s *AttachmentService) Upload(ctx context.Context, actor *domain.Profile, ticketID string, upload AttachmentUpload) (*domain.Attachment, error) {
	ticket, err := s.tickets.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(upload.Name)
	if name == "" || upload.Content == nil {
		return nil, apperrors.NewValidationError("file is required", map[string]any{
			"fields": map[string]string{"file": "required"},
		})
	}
	if upload.Size > s.maxBytes {
		return nil, s.tooLarge()
	}

	key := storage.AttachmentKey(ticket.ID, name, s.now())
	written, err := s.blobs.SaveStream(key, io.LimitReader(upload.Content, s.maxBytes+1))
	if err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("store attachment: %w", err))
	}
	if written > s.maxBytes {
		s.removeBlob(key)
		return nil, s.tooLarge()
	}

	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		Name:       name,
		MimeType:   mimeType,
		SizeBytes:  written,
		StorageKey: key,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		s.removeBlob(key)
		return nil, apperrors.NewUnavailable(fmt.Errorf("record attachment: %w", err))
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventAttachmentAdded,
		TicketID: ticket.ID,
		Actor:    profileActor(actor),
		Payload:  events.AttachmentPayload{AttachmentID: attachment.ID, Name: attachment.Name},
	})
	return attachment, nil
}

// List returns the attachments of a visible ticket.
func (s *AttachmentService) List(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.Attachment, error) {
	if _, err := s.tickets.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("list attachments: %w", err))
	}
	return attachments, nil
}

// Open returns the attachment and a reader over its content. The caller
// closes the reader.
func (s *AttachmentService) Open(ctx context.Context, actor *domain.Profile, ticketID, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.load(ctx, actor, ticketID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.blobs.Open(attachment.StorageKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperrors.NewNotFound("attachment content", map[string]any{"id": attachmentID})
		}
		return nil, nil, apperrors.NewUnavailable(fmt.Errorf("open attachment: %w", err))
	}
	return attachment, file, nil
}

// Delete removes the attachment row and its blob. Managers and the ticket
// owner may delete.
func (s *AttachmentService) Delete(ctx context.Context, actor *domain.Profile, ticketID, attachmentID string) error {
	attachment, err := s.load(ctx, actor, ticketID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, attachment.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
		}
		return apperrors.NewUnavailable(fmt.Errorf("delete attachment: %w", err))
	}
	s.removeBlob(attachment.StorageKey)

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventAttachmentDeleted,
		TicketID: attachment.TicketID,
		Actor:    profileActor(actor),
		Payload:  events.AttachmentPayload{AttachmentID: attachment.ID, Name: attachment.Name},
	})
	return nil
}

func (s *AttachmentService) load(ctx context.Context, actor *domain.Profile, ticketID, attachmentID string) (*domain.Attachment, error) {
	if _, err := s.tickets.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
		}
		return nil, apperrors.NewUnavailable(fmt.Errorf("get attachment: %w", err))
	}
	if attachment.TicketID != ticketID {
		return nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
	}
	return attachment, nil
}

func (s *AttachmentService) removeBlob(key string) {
	if err := s.blobs.Delete(key); err != nil {
		s.logger.Warn("attachment blob not removed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AttachmentService) tooLarge() error {
	return apperrors.NewValidationError("attachment exceeds size limit", map[string]any{
		"max_bytes": s.maxBytes,
	})
}
