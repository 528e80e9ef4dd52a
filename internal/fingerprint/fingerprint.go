// Package fingerprint derives the content hash of an uploaded certificate.
// The pipeline tries the PDF text layer first, falls back to local OCR on
// page rasters, and escalates single pages to a remote vision model when the
// local confidence is too low.
package fingerprint

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/hashutil"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/ocr"
)

type Method string

const (
	MethodTextExtraction Method = "text-extraction"
	MethodLocalOCR       Method = "local-ocr"
	MethodVisionOCR      Method = "vision-ocr"
)

var (
	ErrInsufficientText = errors.New("insufficient text extracted from document")
	ErrUnreadablePDF    = errors.New("document could not be parsed as a PDF")
)

// Fingerprint is the result of hashing a document's normalized text.
type Fingerprint struct {
	Hash       string  `json:"hash"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
	PageCount  int     `json:"page_count"`
	TextLength int     `json:"text_length"`
}

// TextExtractor pulls the native text layer out of a PDF, one string per
// page. An empty slice (or empty strings) means the document is image-only.
type TextExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}

// Rasterizer renders PDF pages to PNG images for OCR and QR scanning.
type Rasterizer interface {
	RasterizePages(data []byte) ([][]byte, error)
}

// VisionReader is the escalation path for low-confidence pages.
type VisionReader interface {
	ExtractText(ctx context.Context, png []byte) (string, error)
}

type Pipeline struct {
	cfg    config.FingerprintConfig
	text   TextExtractor
	raster Rasterizer
	ocr    ocr.Engine
	vision VisionReader // nil when the vision API is not configured
	logger *zap.Logger
}

func NewPipeline(
	cfg config.FingerprintConfig,
	text TextExtractor,
	raster Rasterizer,
	engine ocr.Engine,
	vision VisionReader,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		text:   text,
		raster: raster,
		ocr:    engine,
		vision: vision,
		logger: logger.With(zap.String("component", "fingerprint")),
	}
}

// Fingerprint derives the content hash of a PDF. It is deterministic for the
// same input bytes under the same configuration.
func (p *Pipeline) Fingerprint(ctx context.Context, data []byte) (*Fingerprint, error) {
	pages, err := p.text.ExtractPages(data)
	if err != nil {
		p.logger.Debug("text layer extraction failed, falling back to OCR", zap.Error(err))
	} else if fp := p.fromTextLayer(pages); fp != nil {
		return fp, nil
	}

	return p.fromRaster(ctx, data)
}

func (p *Pipeline) fromTextLayer(pages []string) *Fingerprint {
	raw := strings.Join(pages, "\n")
	normalized := NormalizeText(raw, p.cfg.StopWords)
	if len(normalized) < p.cfg.MinTextLength {
		return nil
	}
	return &Fingerprint{
		Hash:       hashutil.Sum([]byte(normalized)),
		Method:     MethodTextExtraction,
		Confidence: 1.0,
		PageCount:  len(pages),
		TextLength: len(normalized),
	}
}

func (p *Pipeline) fromRaster(ctx context.Context, data []byte) (*Fingerprint, error) {
	rasters, err := p.raster.RasterizePages(data)
	if err != nil {
		return nil, ErrUnreadablePDF
	}

	var (
		texts      []string
		confSum    float64
		confPages  int
		usedVision bool
	)

	for i, png := range rasters {
		pageText, pageConf, viaVision := p.recognizePage(ctx, i, png)
		if pageText == "" {
			continue
		}
		texts = append(texts, pageText)
		confSum += pageConf
		confPages++
		usedVision = usedVision || viaVision
	}

	normalized := NormalizeText(strings.Join(texts, "\n"), p.cfg.StopWords)
	if len(normalized) < p.cfg.MinTextLength {
		return nil, ErrInsufficientText
	}

	method := MethodLocalOCR
	if usedVision {
		method = MethodVisionOCR
	}
	confidence := 0.0
	if confPages > 0 {
		confidence = confSum / float64(confPages)
	}

	return &Fingerprint{
		Hash:       hashutil.Sum([]byte(normalized)),
		Method:     method,
		Confidence: confidence,
		PageCount:  len(rasters),
		TextLength: len(normalized),
	}, nil
}

// recognizePage runs local OCR and, below the escalation threshold, asks the
// vision model as well, keeping whichever candidate scores higher.
func (p *Pipeline) recognizePage(ctx context.Context, page int, png []byte) (string, float64, bool) {
	var localText string
	var localConf float64

	if result, err := p.ocr.Recognize(ctx, png); err != nil {
		p.logger.Debug("local ocr failed", zap.Int("page", page), zap.Error(err))
	} else {
		localText, localConf = result.Text, result.Confidence
	}

	if localConf >= p.cfg.EscalationThreshold || p.vision == nil {
		return localText, localConf, false
	}

	visionText, err := p.vision.ExtractText(ctx, png)
	if err != nil {
		p.logger.Warn("vision escalation failed, keeping local ocr result",
			zap.Int("page", page), zap.Error(err))
		return localText, localConf, false
	}

	localScore := p.scoreCandidate(localText, localConf)
	visionScore := p.scoreCandidate(visionText, ocr.EstimateConfidence(visionText))
	if visionScore > localScore {
		return visionText, ocr.EstimateConfidence(visionText), true
	}
	return localText, localConf, false
}

// scoreCandidate weighs a recognition candidate: base confidence, presence of
// domain keywords, and extracted length.
func (p *Pipeline) scoreCandidate(text string, baseConfidence float64) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)

	var hits int
	for _, kw := range p.cfg.DomainKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	keywordScore := 0.0
	if len(p.cfg.DomainKeywords) > 0 {
		keywordScore = float64(hits) / float64(len(p.cfg.DomainKeywords))
	}

	lengthScore := float64(len(text)) / float64(p.cfg.MinTextLength*4)
	if lengthScore > 1 {
		lengthScore = 1
	}

	return baseConfidence + p.cfg.KeywordWeight*keywordScore + p.cfg.LengthWeight*lengthScore
}
