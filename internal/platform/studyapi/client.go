package studyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhohoai/study-engine/internal/config"
	"github.com/nhohoai/study-engine/internal/domain"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// snippetBytes bounds the body excerpt kept in APIError.
const snippetBytes = 256

// Client talks to the collaborator REST surface. The zero token is valid for
// construction; use ForToken to obtain a client acting for one caller.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	logger  *slog.Logger
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg config.CollaboratorConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid collaborator base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid collaborator base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "studyapi")),
	}, nil
}

// ForToken returns a copy of c that authenticates as the holder of token.
func (c *Client) ForToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// startResponse is the wire shape of the session-start response.
type startResponse struct {
	Session struct {
		ID int64 `json:"id"`
	} `json:"session"`
	Deck struct {
		Title string `json:"title"`
	} `json:"deck"`
	Cards  []domain.Card  `json:"cards"`
	Queues domain.Queues  `json:"queues"`
	Policy *domain.Policy `json:"policy,omitempty"`
}

// StartSession opens a study session on deckID.
func (c *Client) StartSession(ctx context.Context, deckID int64, req domain.StartRequest) (*domain.Bootstrap, error) {
	if req.CarryOverCardIDs == nil {
		req.CarryOverCardIDs = []int64{}
	}
	path := "/decks/" + strconv.FormatInt(deckID, 10) + "/study/start"

	var resp startResponse
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &domain.Bootstrap{
		SessionID: resp.Session.ID,
		DeckTitle: resp.Deck.Title,
		Cards:     resp.Cards,
		Queues:    resp.Queues,
		Policy:    resp.Policy,
	}, nil
}

// ReportAnswer forwards one answer. The response body is ignored.
func (c *Client) ReportAnswer(ctx context.Context, report domain.AnswerReport) error {
	return c.do(ctx, http.MethodPost, "/study/answer", nil, report, nil)
}

// FetchSummary returns the collaborator's summary of a finished session.
func (c *Client) FetchSummary(ctx context.Context, sessionID int64) (*domain.Summary, error) {
	q := url.Values{}
	q.Set("session_id", strconv.FormatInt(sessionID, 10))

	var sum domain.Summary
	if err := c.do(ctx, http.MethodGet, "/study/summary", q, nil, &sum); err != nil {
		return nil, err
	}
	if sum.Rows == nil {
		sum.Rows = []domain.SummaryRow{}
	}
	if sum.CarryOver == nil {
		sum.CarryOver = []int64{}
	}
	return &sum, nil
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "collaborator call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet := string(raw)
		if len(snippet) > snippetBytes {
			snippet = snippet[:snippetBytes]
		}
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: %s %s: empty body", ErrInvalidResponse, method, path)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, path, err)
	}
	return nil
}
