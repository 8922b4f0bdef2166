// Package vision is the alternate EPD strategy: pages are rendered to images
// and read by a multimodal chat model through an OpenAI-compatible API.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/normalizer"
)

// Config configures the vision parser.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // empty means the OpenAI endpoint
	Timeout     time.Duration
	DPI         int
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns the settings the parser was tuned with.
func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT4o,
		Timeout:     2 * time.Minute,
		DPI:         144,
		MaxTokens:   4000,
		Temperature: 0.1,
	}
}

var dueDateLayouts = []string{"2.1.2006", "2006-01-02", "02/01/2006"}

// Parser implements epd.Parser with a vision model.
type Parser struct {
	client   *openai.Client
	config   Config
	renderer Renderer
	logger   *slog.Logger
}

var _ epd.Parser = (*Parser)(nil)

// NewParser creates a vision parser. Pages are rendered with pdftoppm.
func NewParser(cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Parser{
		client:   openai.NewClientWithConfig(clientCfg),
		config:   cfg,
		renderer: PdftoppmRenderer{},
		logger:   logger,
	}
}

// WithRenderer replaces the page renderer.
func (p *Parser) WithRenderer(r Renderer) *Parser {
	p.renderer = r
	return p
}

// Name returns the strategy name.
func (p *Parser) Name() string {
	return epd.StrategyVision
}

// Parse renders every page, asks the model about each one and merges the
// replies. Pages whose reply cannot be decoded are skipped.
func (p *Parser) Parse(ctx context.Context, pdfPath string) (*epd.Document, error) {
	start := time.Now()

	images, err := p.renderer.Render(ctx, pdfPath, p.config.DPI)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to render pages: %v", epd.ErrUnreadablePDF, err)
	}
	if len(images) == 0 {
		return nil, epd.ErrNoPages
	}

	var pages []pageData
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := p.analyzePage(ctx, img, i+1, len(images))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isConfigError(err) {
				return nil, fmt.Errorf("failed to analyze page %d: %w", i+1, err)
			}
			p.logger.Warn("page skipped",
				slog.Int("page", i+1),
				slog.Any("error", err),
			)
			continue
		}
		pages = append(pages, page)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("failed to read any page: %w", ErrNoData)
	}

	doc, err := toDocument(mergePages(pages))
	if err != nil {
		return nil, err
	}

	p.logger.Info("document parsed",
		slog.String("strategy", epd.StrategyVision),
		slog.String("account", doc.Header.AccountNumber),
		slog.Int("pages", len(images)),
		slog.Int("services", len(doc.Services)),
		slog.Duration("duration", time.Since(start)),
	)
	return doc, nil
}

func (p *Parser) analyzePage(ctx context.Context, img []byte, page, total int) (pageData, error) {
	imageURL := fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(img), base64.StdEncoding.EncodeToString(img))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: pagePrompt(page, total),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return pageData{}, fmt.Errorf("failed to request page analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return pageData{}, fmt.Errorf("model returned no choices: %w", ErrNoData)
	}

	content := resp.Choices[0].Message.Content
	data, err := decodePage(content)
	if err != nil {
		p.logger.Debug("undecodable model reply", slog.Int("page", page), slog.String("content", content))
		return pageData{}, err
	}
	return data, nil
}

func toDocument(data pageData) (*epd.Document, error) {
	header := epd.Header{
		AccountNumber: digitsOnly(data.PersonalInfo.AccountNumber),
		FullName:      normalizer.CollapseSpaces(data.PersonalInfo.FullName),
		Address:       normalizer.CollapseSpaces(data.PersonalInfo.Address),
		PaymentPeriod: normalizer.Fold(data.PersonalInfo.Period),
		DueDate:       parseDueDate(data.PersonalInfo.DueDate),
	}
	if header.AccountNumber == "" {
		return nil, epd.ErrMissingAccountNumber
	}

	without := data.Totals.TotalWithoutInsurance.Decimal
	with := data.Totals.TotalWithInsurance.Decimal

	doc := &epd.Document{
		ID:     uuid.New(),
		Header: header,
		Totals: epd.Totals{
			TotalWithoutInsurance: without,
			TotalWithInsurance:    with,
			InsuranceAmount:       epd.InsuranceDifference(without, with, decimal.Zero),
		},
		Services:       make([]epd.ServiceCharge, 0, len(data.ServiceCharges)),
		Recalculations: []epd.Recalculation{},
		Strategy:       epd.StrategyVision,
		CreatedAt:      time.Now().UTC(),
	}

	for _, s := range data.ServiceCharges {
		doc.Services = append(doc.Services, epd.ServiceCharge{
			ServiceName:   s.ServiceName,
			Category:      normalizer.CollapseSpaces(s.Category),
			Volume:        optional(s.Volume),
			Unit:          normalizer.CollapseSpaces(s.Unit),
			Tariff:        optional(s.Tariff),
			Amount:        s.Amount.Decimal,
			Recalculation: s.Recalculations.signed(normalizer.ColumnRecalculation),
			Debt:          s.Debt.signed(normalizer.ColumnDebt),
			Paid:          s.Paid.signed(normalizer.ColumnPaid),
			Total:         s.Total.Decimal,
		})
	}
	doc.Renumber()

	return doc, nil
}

func optional(a *amount) *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal
	return &d
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func parseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d
		}
	}
	return nil
}

// isConfigError reports whether the API rejected the credentials or the
// model. Every other page would fail the same way.
func isConfigError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusNotFound
	}
	return false
}
