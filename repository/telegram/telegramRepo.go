package telegramrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Vasyl-Ch/library-service1.0/util/httpx"
)

// Repo delivers outbound notification text. Implementations must be
// safe for concurrent use; the notify worker is the only caller.
type Repo interface {
	SendMessage(ctx context.Context, text string) error
}

type httpRepo struct {
	token  string
	chatID string
	client *http.Client
}

func NewHTTP(token, chatID string) Repo {
	return &httpRepo{token: token, chatID: chatID, client: httpx.Client()}
}

func (r *httpRepo) SendMessage(ctx context.Context, text string) error {
	body := map[string]any{
		"chat_id":    r.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	b, _ := json.Marshal(body)

	endpoint := "https://api.telegram.org/bot" + r.token + "/sendMessage"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram send failed: %s", resp.Status)
	}
	return nil
}
