// Package zoom создаёт мгновенные встречи через Zoom API.
//
// Токен доступа получается по Server-to-Server OAuth (grant_type=account_credentials)
// с client id/secret приложения, затем вызывается POST /users/me/meetings.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/config"
)

const (
	meetingTypeInstant = 1
	defaultTopic       = "Group discussion"
	maxErrorBody       = 4 << 10
)

// ProvisionError — ошибка создания встречи. StatusCode и Body заполнены,
// если внешний сервис ответил неуспешным статусом.
type ProvisionError struct {
	Stage      string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProvisionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("zoom %s failed: status %d: %s", e.Stage, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("zoom %s failed: %v", e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

type createMeetingRequest struct {
	Topic string `json:"topic"`
	Type  int    `json:"type"`
}

type createMeetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

// Client создаёт встречи в Zoom.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиента. Токены кешируются и обновляются автоматически.
func NewClient(cfg config.Zoom) *Client {
	base := &http.Client{Timeout: cfg.Timeout}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
	}
}

// CreateMeeting создаёт мгновенную встречу и возвращает ссылку для подключения.
func (c *Client) CreateMeeting(ctx context.Context) (string, error) {
	const op = "zoom.CreateMeeting"

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(createMeetingRequest{Topic: defaultTopic, Type: meetingTypeInstant}); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/users/me/meetings", &buf)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, tokenOrTransportError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%s: %w", op, &ProvisionError{
			Stage:      "meeting creation",
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        errors.New("unexpected status"),
		})
	}

	var meeting createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return "", fmt.Errorf("%s: %w", op, &ProvisionError{Stage: "meeting creation", Err: err})
	}
	if meeting.JoinURL == "" {
		return "", fmt.Errorf("%s: %w", op, &ProvisionError{Stage: "meeting creation", Err: errors.New("empty join_url")})
	}
	return meeting.JoinURL, nil
}

func tokenOrTransportError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		pErr := &ProvisionError{Stage: "token acquisition", Body: string(rErr.Body), Err: err}
		if rErr.Response != nil {
			pErr.StatusCode = rErr.Response.StatusCode
		}
		return pErr
	}
	return &ProvisionError{Stage: "request", Err: err}
}
