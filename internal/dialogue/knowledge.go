package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const uploadTimeout = 60 * time.Second

// KnowledgeClient uploads documents into the engine's knowledge base and
// tags them with the owning group so retrieval stays scoped per team.
type KnowledgeClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func NewKnowledgeClient(log *slog.Logger, baseURL, apiKey string) *KnowledgeClient {
	if log == nil {
		log = slog.Default()
	}
	return &KnowledgeClient{
		httpClient: &http.Client{Timeout: uploadTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     log.With(slog.String("service", "knowledge")),
	}
}

type uploadResponse struct {
	Data struct {
		DocumentID string `json:"documentID"`
	} `json:"data"`
	DocumentID string `json:"documentID"`
}

// UploadDocument pushes one file into the knowledge base and tags it with
// tag. A failed tagging call is logged and ignored; the document is
// already uploaded at that point.
func (c *KnowledgeClient) UploadDocument(ctx context.Context, filename, contentType string, data []byte, tag string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}

	endpoint := c.baseURL + "/v1/knowledge-base/docs/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload document: status %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("upload response not parseable, skipping tag", slog.Any("error", err))
		return nil
	}
	docID := parsed.Data.DocumentID
	if docID == "" {
		docID = parsed.DocumentID
	}
	if docID == "" || tag == "" {
		return nil
	}

	if err := c.tagDocument(ctx, docID, tag); err != nil {
		c.logger.Warn("tagging uploaded document failed",
			slog.String("document_id", docID),
			slog.String("tag", tag),
			slog.Any("error", err))
	}
	return nil
}

func (c *KnowledgeClient) tagDocument(ctx context.Context, docID, tag string) error {
	body, err := json.Marshal(map[string]any{
		"data": map[string]any{"tags": []string{tag}},
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/knowledge-base/docs/%s", c.baseURL, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("tag document: status %d", resp.StatusCode)
	}
	return nil
}
