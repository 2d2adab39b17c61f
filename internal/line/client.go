// Package line adapts the LINE Messaging API to the domain capabilities.
package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"linelogger/internal/domain"
)

const (
	downloadTimeout = 30 * time.Second
	profileTimeout  = 10 * time.Second
	replyTimeout    = 10 * time.Second
)

// Client wraps a LINE bot client and exposes the media, profile, and reply
// capabilities the pipeline needs.
type Client struct {
	bot    *linebot.Client
	logger *slog.Logger
}

func New(channelSecret, channelToken string, logger *slog.Logger) (*Client, error) {
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("line client: %w", err)
	}
	return &Client{bot: bot, logger: logger}, nil
}

// Bot exposes the underlying SDK client for webhook signature parsing.
func (c *Client) Bot() *linebot.Client { return c.bot }

// Download fetches the raw bytes of a message's media content.
func (c *Client) Download(ctx context.Context, mediaID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	resp, err := c.bot.GetMessageContent(mediaID).WithContext(ctx).Do()
	if err != nil {
		return nil, classify(fmt.Errorf("get message content %s: %w", mediaID, err))
	}
	defer resp.Content.Close()

	data, err := io.ReadAll(resp.Content)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("read message content %s: %w", mediaID, err))
	}
	return data, nil
}

// DisplayName resolves the sender's profile name. Errors are returned and
// the caller falls back to a placeholder name.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.Permanent(errors.New("empty user id"))
	}

	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	profile, err := c.bot.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		return "", classify(fmt.Errorf("get profile %s: %w", userID, err))
	}
	if strings.TrimSpace(profile.DisplayName) == "" {
		return "", domain.Permanent(fmt.Errorf("profile %s has no display name", userID))
	}
	return profile.DisplayName, nil
}

// Send delivers text back on the event's one-time reply token.
func (c *Client) Send(ctx context.Context, replyToken, text string) error {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	_, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("reply message: %w", err))
	}
	return nil
}

// classify maps SDK errors onto the error taxonomy by HTTP status where one
// is available.
func classify(err error) error {
	var apiErr *linebot.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return domain.AuthFailure(err)
		case apiErr.Code == http.StatusNotFound:
			return &domain.ClassifiedError{Class: domain.ErrNotFound, Err: err}
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return domain.Transient(err)
		default:
			return domain.Permanent(err)
		}
	}
	// Network-level failures without an API status.
	return domain.Transient(err)
}

var (
	_ domain.MediaFetcher  = (*Client)(nil)
	_ domain.ProfileSource = (*Client)(nil)
	_ domain.Replier       = (*Client)(nil)
)
