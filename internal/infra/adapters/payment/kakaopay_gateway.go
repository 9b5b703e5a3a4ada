package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*KakaoPayGateway)(nil)

// KakaoPayGateway implements adapter.PaymentGateway against KakaoPay's
// one-time payment API (ready + approve). Requests are form-encoded with an
// admin-key Authorization header, as the provider requires.
type KakaoPayGateway struct {
	adminKey   string
	cid        string
	readyURL   string
	approveURL string
	client     *http.Client
}

func NewKakaoPayGateway(adminKey, cid, readyURL, approveURL string) (*KakaoPayGateway, error) {
	if adminKey == "" {
		return nil, errors.New("kakaopay admin key empty")
	}
	if cid == "" {
		cid = "TC0ONETIME"
	}
	if readyURL == "" {
		readyURL = "https://kapi.kakao.com/v1/payment/ready"
	}
	if approveURL == "" {
		approveURL = "https://kapi.kakao.com/v1/payment/approve"
	}
	return &KakaoPayGateway{
		adminKey:   adminKey,
		cid:        cid,
		readyURL:   readyURL,
		approveURL: approveURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (k *KakaoPayGateway) Name() string { return "kakaopay" }

func (k *KakaoPayGateway) Ready(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	form := url.Values{
		"cid":              {k.cid},
		"partner_order_id": {req.OrderID},
		"partner_user_id":  {req.BuyerID},
		"item_name":        {req.ItemName},
		"quantity":         {strconv.Itoa(req.Quantity)},
		"total_amount":     {strconv.FormatInt(req.TotalAmount, 10)},
		"tax_free_amount":  {"0"},
		"approval_url":     {req.ApprovalURL},
		"cancel_url":       {req.CancelURL},
		"fail_url":         {req.FailURL},
	}

	var out struct {
		TID                string `json:"tid"`
		NextRedirectPCURL  string `json:"next_redirect_pc_url"`
		NextRedirectMobURL string `json:"next_redirect_mobile_url"`
	}
	if err := k.post(ctx, k.readyURL, form, &out); err != nil {
		return adapter.CheckoutSession{}, err
	}
	if out.TID == "" || out.NextRedirectPCURL == "" {
		return adapter.CheckoutSession{}, &domain.ProviderError{StatusCode: http.StatusOK, Body: "ready response missing tid or redirect url"}
	}
	return adapter.CheckoutSession{
		TID:               out.TID,
		RedirectPCURL:     out.NextRedirectPCURL,
		RedirectMobileURL: out.NextRedirectMobURL,
	}, nil
}

func (k *KakaoPayGateway) Approve(ctx context.Context, tid, orderID, pgToken string) (adapter.Approval, error) {
	form := url.Values{
		"cid":              {k.cid},
		"tid":              {tid},
		"partner_order_id": {orderID},
		"partner_user_id":  {"user_1"},
		"pg_token":         {pgToken},
	}

	var out struct {
		AID            string `json:"aid"`
		TID            string `json:"tid"`
		PartnerOrderID string `json:"partner_order_id"`
		Amount         struct {
			Total int64 `json:"total"`
		} `json:"amount"`
	}
	if err := k.post(ctx, k.approveURL, form, &out); err != nil {
		return adapter.Approval{}, err
	}
	if out.AID == "" {
		return adapter.Approval{}, &domain.ProviderError{StatusCode: http.StatusOK, Body: "approve response missing aid"}
	}
	return adapter.Approval{
		AID:     out.AID,
		TID:     out.TID,
		OrderID: out.PartnerOrderID,
		Amount:  out.Amount.Total,
	}, nil
}

func (k *KakaoPayGateway) post(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "KakaoAK "+k.adminKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ProviderError{StatusCode: resp.StatusCode, Body: "malformed provider response: " + err.Error()}
	}
	return nil
}
