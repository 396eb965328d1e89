// Package notify pushes game lifecycle events to an external webhook,
// typically a chat-bot bridge that announces results to the room the
// match was started from.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/msgcat"
	"github.com/hanq-games/baduk-server/internal/obslog"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

type Notifier struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	catalog *msgcat.Catalog

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Notifier)

func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(n *Notifier) { n.headers = h }
}

func WithRetry(max int) Option {
	return func(n *Notifier) { n.retryMax = max }
}

// WithCatalog attaches announcement templates; events then carry a
// rendered human-readable message alongside the structured fields.
func WithCatalog(c *msgcat.Catalog) Option {
	return func(n *Notifier) { n.catalog = c }
}

func New(baseURL string, opts ...Option) *Notifier {
	n := &Notifier{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// GameEndedEvent is the webhook payload for a settled match.
type GameEndedEvent struct {
	Event      string  `json:"event"`
	GameID     string  `json:"game_id"`
	Mode       string  `json:"mode"`
	Winner     string  `json:"winner"`
	Method     string  `json:"method"`
	BlackID    string  `json:"black_id,omitempty"`
	BlackName  string  `json:"black_name,omitempty"`
	WhiteID    string  `json:"white_id,omitempty"`
	WhiteName  string  `json:"white_name,omitempty"`
	ScoreBlack float64 `json:"score_black"`
	ScoreWhite float64 `json:"score_white"`
	MoveCount  int     `json:"move_count"`
	Message    string  `json:"message,omitempty"`
}

// GameEnded fires the settlement webhook in the background. Delivery is
// best effort; a lost webhook never blocks or fails the game.
func (n *Notifier) GameEnded(sess *game.Session) {
	if sess.Result == nil {
		return
	}
	ev := GameEndedEvent{
		Event:      "game_ended",
		GameID:     sess.ID,
		Mode:       string(sess.Mode),
		Winner:     sess.Result.Winner.String(),
		Method:     string(sess.Result.Method),
		ScoreBlack: sess.Result.Black.Total,
		ScoreWhite: sess.Result.White.Total,
		MoveCount:  len(sess.History),
	}
	if sess.Black != nil {
		ev.BlackID, ev.BlackName = sess.Black.ID, sess.Black.Name
	}
	if sess.White != nil {
		ev.WhiteID, ev.WhiteName = sess.White.ID, sess.White.Name
	}
	ev.Message = n.announce(sess)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.doJSON(ctx, "/events", ev, true); err != nil {
			obslog.L().Warn("game-ended webhook failed",
				zap.String("game_id", sess.ID), zap.Error(err))
		}
	}()
}

// announce renders the result template for the event, empty when no
// catalog is attached or the template fails.
func (n *Notifier) announce(sess *game.Session) string {
	if n.catalog == nil || sess.Result == nil {
		return ""
	}
	r := sess.Result

	key := "result." + string(r.Method)
	if r.Winner == board.Empty {
		key = "result.draw"
	}

	data := map[string]any{
		"Lead": fmt.Sprintf("%.1f", r.ScoreLead),
	}
	if w := sess.PlayerFor(r.Winner); w != nil {
		data["Winner"] = w.Name
	}
	if l := sess.PlayerFor(r.Winner.Opponent()); l != nil {
		data["Loser"] = l.Name
	}

	msg, err := n.catalog.Render(key, data)
	if err != nil {
		obslog.L().Warn("announcement render failed",
			zap.String("key", key), zap.Error(err))
		return ""
	}
	return msg
}

func (n *Notifier) doJSON(ctx context.Context, path string, in any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(n.baseURL + path)
	req.Header.SetContentType("application/json")

	if n.headers != nil {
		for k, v := range n.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req.SetBody(payload)

	attempts := 1
	if retry {
		attempts = n.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := n.computeDeadline(ctx)
		err := n.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			lastErr = fmt.Errorf("webhook error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		}
		if attempt == attempts {
			return lastErr
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	return lastErr
}

func (n *Notifier) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(n.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(n.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
