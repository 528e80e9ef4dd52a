// Package vision calls a remote generative vision model to read text out of a
// page image when local OCR confidence is too low. Failures here are soft:
// the caller keeps the local OCR result.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
)

const extractionPrompt = "Extract all readable text from this certificate image. " +
	"Return only the text content, with no commentary."

var (
	ErrDisabled  = errors.New("vision api not configured")
	ErrNoContent = errors.New("vision api returned no text")
)

type Client struct {
	http   *resty.Client
	cfg    config.VisionConfig
	logger *zap.Logger
}

func NewClient(cfg config.VisionConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger.With(zap.String("client", "vision")),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractText sends one page raster to the vision model and returns the
// recognized text.
func (c *Client) ExtractText(ctx context.Context, png []byte) (string, error) {
	if !c.cfg.Enabled || c.cfg.Endpoint == "" {
		return "", ErrDisabled
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: extractionPrompt},
				{InlineData: &inlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(png),
				}},
			},
		}},
	}

	var respBody generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model))
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		c.logger.Warn("Vision API rejected request",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 200)))
		return "", fmt.Errorf("vision api status %d", resp.StatusCode())
	}
	if respBody.Error != nil {
		return "", fmt.Errorf("vision api error %d: %s", respBody.Error.Code, respBody.Error.Message)
	}

	var sb strings.Builder
	for _, cand := range respBody.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
			sb.WriteString("\n")
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
