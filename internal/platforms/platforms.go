package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
)

// Client is the capability contract every platform adapter satisfies.
// Publish reports ordinary provider rejection inside PublishResult; its
// error return is reserved for configuration problems such as missing
// credentials.
type Client interface {
	AuthURL(userID int64) string
	ExchangeCallback(ctx context.Context, code, state string) (*models.SocialAccount, error)
	Refresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error)
	Publish(ctx context.Context, account *models.SocialAccount, content *transfer.PostContent) (*transfer.PublishResult, error)
	AccountInfo(ctx context.Context, account *models.SocialAccount) (json.RawMessage, error)
}

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrOAuthExchange       = errors.New("oauth exchange failed")
	ErrTokenRefresh        = errors.New("token refresh rejected")
	ErrAccountInfo         = errors.New("account info fetch failed")
)

// requestTimeout bounds every provider HTTP call so one unresponsive
// platform cannot hang a page render.
const requestTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// NewState builds the OAuth state token carried through the provider
// round-trip. Format is "{userID}-{unixMillis}" so the initiating user can
// be recovered from the callback. It carries no signature or expiry.
func NewState(userID int64) string {
	return fmt.Sprintf("%d-%d", userID, time.Now().UnixMilli())
}

// UserIDFromState recovers the initiating user id from a state token.
func UserIDFromState(state string) (int64, error) {
	head, _, found := strings.Cut(state, "-")
	if !found || head == "" {
		return 0, fmt.Errorf("%w: malformed state token", ErrOAuthExchange)
	}
	userID, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed state token", ErrOAuthExchange)
	}
	return userID, nil
}
