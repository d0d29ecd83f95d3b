package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxKnowledgeUpload caps accepted document size.
const maxKnowledgeUpload = 10 << 20

// KnowledgeUploader pushes a document into the engine's knowledge base.
type KnowledgeUploader interface {
	UploadDocument(ctx context.Context, filename, contentType string, data []byte, tag string) error
}

type KnowledgeHandler struct {
	uploader KnowledgeUploader
	logger   *slog.Logger
}

func NewKnowledgeHandler(log *slog.Logger, uploader KnowledgeUploader) *KnowledgeHandler {
	return &KnowledgeHandler{
		uploader: uploader,
		logger:   log.With(slog.String("handler", "knowledge")),
	}
}

func (h *KnowledgeHandler) Register(e *echo.Echo) {
	e.POST("/knowledge/:group", h.Upload)
}

// Upload accepts one multipart file and files it under the group's tag.
func (h *KnowledgeHandler) Upload(c echo.Context) error {
	group := c.Param("group")
	if group == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "group is required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	if fileHeader.Size > maxKnowledgeUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable file"})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxKnowledgeUpload))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable file"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.uploader.UploadDocument(c.Request().Context(), fileHeader.Filename, contentType, data, group); err != nil {
		h.logger.Error("knowledge upload failed",
			slog.String("group", group),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upload failed"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "uploaded", "group": group})
}
