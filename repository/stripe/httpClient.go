package striperepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Vasyl-Ch/library-service1.0/util/httpx"
)

const apiBase = "https://api.stripe.com/v1"

type httpRepo struct {
	apiKey string
	client *http.Client
}

func NewHTTP(apiKey string) Repo { return &httpRepo{apiKey: apiKey, client: httpx.Client()} }

func (r *httpRepo) CreateCheckoutSession(ctx context.Context, items []LineItem, successURL, cancelURL string, metadata map[string]string) (*Session, error) {
	if len(items) == 0 {
		return nil, errors.New("stripe: no line items")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", cancelURL)
	form.Add("payment_method_types[]", "card")
	for i, it := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", "1")
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(it.AmountCents, 10))
		form.Set(prefix+"[price_data][product_data][name]", it.Label)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe create session failed: %s", resp.Status)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("stripe: empty session id")
	}
	return &Session{SessionID: out.ID, SessionURL: out.URL}, nil
}

func (r *httpRepo) GetSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.apiKey, "")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe get session failed: %s", resp.Status)
	}

	var out struct {
		PaymentStatus string            `json:"payment_status"`
		Metadata      map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &SessionStatus{Paid: out.PaymentStatus == "paid", Metadata: out.Metadata}, nil
}
