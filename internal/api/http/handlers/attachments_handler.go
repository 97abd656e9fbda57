package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/api/dto"
	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/service"
)

// AttachmentService is the attachment surface used by the handler.
type AttachmentService interface {
	Upload(ctx context.Context, actor *domain.Profile, ticketID string, upload service.AttachmentUpload) (*domain.Attachment, error)
	List(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.Attachment, error)
	Open(ctx context.Context, actor *domain.Profile, ticketID, attachmentID string) (*domain.Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, actor *domain.Profile, ticketID, attachmentID string) error
}

// AttachmentsHandler serves ticket attachments.
type AttachmentsHandler struct {
	service AttachmentService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachmentService AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService}
}

// Upload POST /api/v1/tickets/:id/attachments (multipart field "file").
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return invalidField("file", "required")
	}
	file, err := header.Open()
	if err != nil {
		return invalidField("file", "unreadable")
	}
	defer file.Close()

	attachment, err := h.service.Upload(c.UserContext(), actor, c.Params("id"), service.AttachmentUpload{
		Name:     header.Filename,
		MimeType: header.Header.Get(fiber.HeaderContentType),
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

// List GET /api/v1/tickets/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	attachments, err := h.service.List(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, dto.NewAttachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Download GET /api/v1/tickets/:id/attachments/:attachmentId. The body
// stream is closed by fasthttp once written.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	attachment, content, err := h.service.Open(c.UserContext(), actor, c.Params("id"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	c.Attachment(attachment.Name)
	c.Set(fiber.HeaderContentType, attachment.MimeType)
	return c.SendStream(content, int(attachment.SizeBytes))
}

// Delete DELETE /api/v1/tickets/:id/attachments/:attachmentId.
func (h *AttachmentsHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id"), c.Params("attachmentId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
