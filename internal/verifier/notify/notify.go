// Package notify sends SMS verification notices through a Twilio-style
// messaging gateway. Delivery is best effort; the caller logs failures and
// moves on.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier posts messages to an SMS gateway. AccountSID and AuthToken are
// sent as basic auth; From is the sending number.
type Notifier struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string

	httpClient *http.Client
}

func New(baseURL, accountSID, authToken, from string) *Notifier {
	return &Notifier{
		BaseURL:    baseURL,
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one message. Any non-2xx response is an error.
func (n *Notifier) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(n.BaseURL, "/"), n.AccountSID)

	form := url.Values{}
	form.Set("From", n.From)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.AccountSID, n.AuthToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}
