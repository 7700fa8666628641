package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/utils"
)

const EMAIL_INTERVAL = 3 * time.Second

// Client wraps the Gmail API client
type Client struct {
	service      *gmail.Service
	userID       string
	sender       string
	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client from a token that already carries the gmail.send scope
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, token *oauth2.Token, cfg config.GmailConfig) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	userID := cfg.UserID
	if userID == "" {
		userID = "me"
	}
	return &Client{service: service, userID: userID, sender: cfg.Sender}, nil
}

// SendEmail sends a plain text email, waiting EMAIL_INTERVAL between sends to respect
// Gmail API rate limits
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.lastSendTime.IsZero() {
		if wait := EMAIL_INTERVAL - time.Since(c.lastSendTime); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	message := &gmail.Message{Raw: encodeMessage(c.sender, to, subject, body)}
	if _, err := c.service.Users.Messages.Send(c.userID, message).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()
	return nil
}

// encodeMessage builds the RFC 2822 message Gmail expects, base64url encoded
func encodeMessage(from, to, subject, body string) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
