package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitmatch/internal/notify/models"
	id "kitmatch/pkg/domain"
)

func message() *models.Message {
	return &models.Message{
		MatchID:       id.NewMatchID(),
		PickupCode:    "CS-7QX2MZ",
		Kit:           id.KitComplete,
		KitLabel:      id.KitComplete.Label(),
		PostName:      "UBS Centro",
		PostCity:      "Recife",
		DonorName:     "Ana",
		DonorPhone:    "+5581991234567",
		ReceiverName:  "Bia",
		ReceiverPhone: "+5581998765432",
		Summary:       "Match gerado",
		ReceiverText:  "Oi, Bia!",
		DonorText:     "Oi, Ana!",
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	tr := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))
	msg := message()

	require.NoError(t, tr.Send(context.Background(), msg))
	assert.Equal(t, NameLog, tr.Name())
	assert.Contains(t, buf.String(), msg.MatchID.String())
	assert.NotContains(t, buf.String(), msg.ReceiverPhone)
}

type recordingProducer struct {
	topic      string
	key, value []byte
	err        error
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key, value []byte) error {
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func TestKafka(t *testing.T) {
	t.Run("publishes json keyed by match", func(t *testing.T) {
		p := &recordingProducer{}
		msg := message()
		require.NoError(t, NewKafka(p, "kitmatch.notifications").Send(context.Background(), msg))

		assert.Equal(t, "kitmatch.notifications", p.topic)
		assert.Equal(t, msg.MatchID.String(), string(p.key))
		var decoded models.Message
		require.NoError(t, json.Unmarshal(p.value, &decoded))
		assert.Equal(t, "CS-7QX2MZ", decoded.PickupCode)
	})

	t.Run("producer failure is returned", func(t *testing.T) {
		p := &recordingProducer{err: errors.New("broker down")}
		err := NewKafka(p, "t").Send(context.Background(), message())
		assert.ErrorContains(t, err, "broker down")
	})
}

func TestWebhook(t *testing.T) {
	t.Run("retries server errors and sends one text per recipient", func(t *testing.T) {
		var calls atomic.Int32
		var got WebhookPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		msg := message()
		tr := NewWebhook(srv.URL, "secret", WithRetries(2, time.Millisecond))
		require.NoError(t, tr.Send(context.Background(), msg))

		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, msg.MatchID.String(), got.MatchID)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, models.RecipientReceiver, got.Messages[0].Recipient)
		assert.Equal(t, msg.ReceiverPhone, got.Messages[0].Phone)
		assert.Equal(t, msg.DonorText, got.Messages[1].Text)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		err := NewWebhook(srv.URL, "", WithRetries(3, time.Millisecond)).Send(context.Background(), message())
		assert.ErrorContains(t, err, "401")
		assert.Equal(t, int32(1), calls.Load())
	})
}

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, b.err
}

func TestTelegram(t *testing.T) {
	t.Run("posts the summary to the configured chat", func(t *testing.T) {
		bot := &fakeBot{}
		require.NoError(t, NewTelegram(bot, -100123).Send(context.Background(), message()))

		require.Len(t, bot.sent, 1)
		cfg, ok := bot.sent[0].(tgbotapi.MessageConfig)
		require.True(t, ok)
		assert.Equal(t, int64(-100123), cfg.ChatID)
		assert.Equal(t, "Match gerado", cfg.Text)
	})

	t.Run("cancelled context skips the call", func(t *testing.T) {
		bot := &fakeBot{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, NewTelegram(bot, 1).Send(ctx, message()), context.Canceled)
		assert.Empty(t, bot.sent)
	})

	t.Run("bot failure is returned", func(t *testing.T) {
		bot := &fakeBot{err: errors.New("chat not found")}
		assert.ErrorContains(t, NewTelegram(bot, 1).Send(context.Background(), message()), "chat not found")
	})
}
