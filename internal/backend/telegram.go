package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ingestlab/ingest-harness/internal/schema"
)

// TelegramClient implements Client over the Telegram Bot API. It owns the
// fixed-interval pacer and the RateLimited retry loop so every caller gets
// the same backpressure behaviour regardless of send kind.
type TelegramClient struct {
	bot    *tgbot.Bot
	pacer  *pacer
	policy RetryPolicy
}

// NewTelegramClient constructs a client authenticated with token, pacing
// every send at PacerInterval and retrying per DefaultRetryPolicy.
func NewTelegramClient(token string) (*TelegramClient, error) {
	b, err := tgbot.New(token)
	if err != nil {
		return nil, &Error{Code: Unauthorized, Message: err.Error()}
	}
	return &TelegramClient{bot: b, pacer: newPacer(PacerInterval), policy: DefaultRetryPolicy}, nil
}

func (c *TelegramClient) Send(ctx context.Context, req SendRequest) (schema.Message, error) {
	if err := c.pacer.wait(ctx); err != nil {
		return schema.Message{}, &Error{Code: NetworkError, Message: err.Error()}
	}
	return sendWithRetry(ctx, c.policy, func(ctx context.Context) (schema.Message, error) {
		return c.sendOnce(ctx, req)
	})
}

func (c *TelegramClient) sendOnce(ctx context.Context, req SendRequest) (schema.Message, error) {
	switch req.Kind {
	case schema.MessageText, "":
		msg, err := c.bot.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: req.ChannelID,
			Text:   req.Text,
		})
		if err != nil {
			return schema.Message{}, classifyTelegramError(err)
		}
		return schema.Message{
			Kind:      schema.MessageText,
			Text:      req.Text,
			ChatID:    req.ChannelID,
			MessageID: int64(msg.ID),
		}, nil
	case schema.MessagePhoto, schema.MessageDocument, schema.MessageVoice, schema.MessageAudio:
		return c.sendMedia(ctx, req)
	default:
		return schema.Message{}, &Error{Code: PayloadRejected, Message: fmt.Sprintf("unknown message kind %q", req.Kind)}
	}
}

func (c *TelegramClient) sendMedia(ctx context.Context, req SendRequest) (schema.Message, error) {
	file, err := inputFileFor(req)
	if err != nil {
		return schema.Message{}, err
	}

	var (
		msgID int64
		err2  error
	)
	switch req.Kind {
	case schema.MessagePhoto:
		m, e := c.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{ChatID: req.ChannelID, Photo: file, Caption: req.Caption})
		if e == nil {
			msgID = int64(m.ID)
		}
		err2 = e
	case schema.MessageDocument:
		m, e := c.bot.SendDocument(ctx, &tgbot.SendDocumentParams{ChatID: req.ChannelID, Document: file, Caption: req.Caption})
		if e == nil {
			msgID = int64(m.ID)
		}
		err2 = e
	case schema.MessageVoice:
		m, e := c.bot.SendVoice(ctx, &tgbot.SendVoiceParams{ChatID: req.ChannelID, Voice: file, Caption: req.Caption})
		if e == nil {
			msgID = int64(m.ID)
		}
		err2 = e
	case schema.MessageAudio:
		m, e := c.bot.SendAudio(ctx, &tgbot.SendAudioParams{ChatID: req.ChannelID, Audio: file, Caption: req.Caption})
		if e == nil {
			msgID = int64(m.ID)
		}
		err2 = e
	}
	if err2 != nil {
		return schema.Message{}, classifyTelegramError(err2)
	}

	media := &schema.MediaPayload{Caption: req.Caption, FileName: req.FileName}
	if req.FileID != "" {
		media.FileID = req.FileID
	}

	out := schema.Message{Kind: req.Kind, ChatID: req.ChannelID, MessageID: msgID}
	switch req.Kind {
	case schema.MessagePhoto:
		out.Photo = media
	case schema.MessageDocument:
		out.Document = media
	case schema.MessageVoice:
		out.Voice = media
	case schema.MessageAudio:
		out.Audio = media
	}
	return out, nil
}

// inputFileFor decides the reference-vs-upload variant per SendRequest: a
// FileID references prior backend state, a LocalPath uploads fresh bytes.
func inputFileFor(req SendRequest) (models.InputFile, error) {
	if req.FileID != "" {
		return &models.InputFileString{Data: req.FileID}, nil
	}
	if req.LocalPath == "" {
		return nil, &Error{Code: PayloadRejected, Message: "neither fileId nor localPath set"}
	}
	data, err := os.ReadFile(req.LocalPath)
	if err != nil {
		return nil, &Error{Code: PayloadRejected, Message: err.Error()}
	}
	name := req.FileName
	if name == "" {
		name = filepath.Base(req.LocalPath)
	}
	return &models.InputFileUpload{Filename: name, Data: bytes.NewReader(data)}, nil
}

func (c *TelegramClient) DeleteMessage(ctx context.Context, channelID string, messageID int64) error {
	if err := c.pacer.wait(ctx); err != nil {
		return &Error{Code: NetworkError, Message: err.Error()}
	}
	_, err := c.bot.DeleteMessage(ctx, &tgbot.DeleteMessageParams{ChatID: channelID, MessageID: int(messageID)})
	if err != nil {
		return classifyTelegramError(err)
	}
	return nil
}

func (c *TelegramClient) PollNotifications(ctx context.Context, channelID string, afterMessageID int64) ([]schema.Message, error) {
	updates, err := c.bot.GetUpdates(ctx, &tgbot.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		return nil, classifyTelegramError(err)
	}

	var out []schema.Message
	for _, u := range updates {
		if u.Message == nil {
			continue
		}
		if fmt.Sprint(u.Message.Chat.ID) != channelID {
			continue
		}
		if afterMessageID > 0 && int64(u.Message.ID) <= afterMessageID {
			continue
		}
		out = append(out, schema.Message{
			Kind:      schema.MessageText,
			Text:      u.Message.Text,
			ChatID:    channelID,
			MessageID: int64(u.Message.ID),
		})
	}
	return out, nil
}

// classifyTelegramError maps a go-telegram/bot transport error onto the
// harness's closed error-kind set. A 429 becomes RateLimited with a fixed
// 5s RetryAfter; the retry-after value in the server's response is not read.
func classifyTelegramError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "too many requests") || strings.Contains(lower, "429"):
		return &Error{Code: RateLimited, Message: msg, RetryAfter: 5 * time.Second}
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "401"):
		return &Error{Code: Unauthorized, Message: msg}
	case strings.Contains(lower, "not found") || strings.Contains(lower, "404"):
		return &Error{Code: NotFound, Message: msg}
	case strings.Contains(lower, "bad request") || strings.Contains(lower, "400"):
		return &Error{Code: PayloadRejected, Message: msg}
	default:
		return &Error{Code: NetworkError, Message: msg}
	}
}
