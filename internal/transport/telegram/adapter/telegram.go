package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	kit "farewatch/internal/transport"
	logx "farewatch/pkg/logx"
)

// ErrPartialDelivery reports a split message whose later chunks failed after
// earlier ones reached the chat.
var ErrPartialDelivery = errors.New("telegram: message partially delivered")

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint (tests, local bot-api servers).
	APIURL string
	// Offline skips the getMe token check at construction.
	Offline bool
	Timeout time.Duration
	// MinInterval spaces consecutive sends; Telegram throttles bursts to one chat.
	MinInterval time.Duration
}

// Adapter is a send-only Telegram client. It never long-polls for updates.
type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	if cfg.MinInterval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	if !cfg.Offline && b.Me != nil {
		log.Info("bot ready", logx.String("username", b.Me.Username))
	}
	return a, nil
}

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks Telegram accepts.
// It prefers newline boundaries so Markdown entities stay on one line.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		if chunk != "" {
			out = append(out, chunk)
		}
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	chunks := splitTelegramText(text, telegramTextLimit)
	for i, chunk := range chunks {
		if err := a.wait(ctx); err != nil {
			return first, a.partial(to, i, len(chunks), err)
		}
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, a.partial(to, i, len(chunks), fmt.Errorf("telegram: send chunk %d: %w", i+1, err))
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

func (a *Adapter) wait(ctx context.Context) error {
	if a.limiter != nil {
		return a.limiter.Wait(ctx)
	}
	return ctx.Err()
}

// partial marks err with ErrPartialDelivery once at least one chunk is out.
func (a *Adapter) partial(to kit.ChatTarget, sent, total int, err error) error {
	if sent == 0 {
		return err
	}
	a.log.Warn("telegram message partially delivered",
		logx.Int64("chat_id", to.ChatID),
		logx.Int("sent", sent),
		logx.Int("chunks", total),
		logx.Err(err),
	)
	return fmt.Errorf("%w (%d of %d chunks): %w", ErrPartialDelivery, sent, total, err)
}
