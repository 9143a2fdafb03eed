// Package notify sends anomaly summaries to Telegram chats.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

// Telegram allows about 30 messages per second for bots
const sendInterval = 50 * time.Millisecond

// Sender is the part of tgbotapi.BotAPI the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers messages to a fixed set of chats
type Notifier struct {
	sender     Sender
	chatIDs    []int64
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// New creates a notifier on top of an existing sender
func New(sender Sender, chatIDs []int64) *Notifier {
	return &Notifier{
		sender:  sender,
		chatIDs: chatIDs,
		limiter: rate.NewLimiter(rate.Every(sendInterval), 1),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// NewTelegram connects a bot with token
func NewTelegram(token string, chatIDs []int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return New(bot, chatIDs), nil
}

// Write sends the anomaly summary of result; runs without anomalies are not announced
func (n *Notifier) Write(ctx context.Context, result *models.AnalysisResult) error {
	if result.Anomalies == nil || result.Anomalies.Anomalies == 0 {
		n.logger.Debug().Msg("No anomalies, nothing to send")
		return nil
	}
	text := FormatAnomalySummary(result.GeneratedAt, result.Records, result.Anomalies.Anomalies, result.Summary.AnomalyCounts)
	return n.Broadcast(ctx, text)
}

// Broadcast sends text to every chat. Failing chats do not stop the others;
// their errors are joined.
func (n *Notifier) Broadcast(ctx context.Context, text string) error {
	var errs []error
	sent := 0

	for i, chatID := range n.chatIDs {
		if err := n.limiter.Wait(ctx); err != nil {
			return errors.Join(append(errs, err)...)
		}

		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown

		err := backoff.Retry(func() error {
			_, err := n.sender.Send(msg)
			if rejected(err) {
				return backoff.Permanent(err)
			}
			return err
		}, backoff.WithContext(n.newBackOff(), ctx))
		if err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}

		sent++
		n.logger.Debug().Int64("chat_id", chatID).Int("n", i+1).Int("of", len(n.chatIDs)).Msg("Message sent")
	}

	n.logger.Info().Int("sent", sent).Int("failed", len(errs)).Msg("Broadcast completed")
	return errors.Join(errs...)
}

// rejected reports whether Telegram refused the request itself, such as an
// unknown chat or a blocked bot. Only rate limiting is worth retrying.
func rejected(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= http.StatusBadRequest &&
		apiErr.Code < http.StatusInternalServerError &&
		apiErr.Code != http.StatusTooManyRequests
}

// FormatAnomalySummary renders the per-day anomaly counts as a Markdown message
func FormatAnomalySummary(generatedAt time.Time, records, anomalies int, counts []models.AnomalyCount) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Water flow anomalies*\n")
	fmt.Fprintf(&b, "Run: %s\n", generatedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "%d of %d readings flagged\n", anomalies, records)
	if len(counts) > 0 {
		b.WriteString("\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "• %s: %d anomalies detected\n", c.Day.Format("2006-01-02"), c.Count)
		}
	}
	return b.String()
}
