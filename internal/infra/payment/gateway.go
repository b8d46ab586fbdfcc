package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"order-fulfillment/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider transaction statuses.
const (
	StatusComplete  = "COMPLETE"
	StatusPending   = "PENDING"
	StatusAmbiguous = "AMBIGUOUS"
)

type GatewayConfig struct {
	Method       domain.PaymentMethod
	MerchantCode string
	Secret       string
	PaymentURL   string
	StatusURL    string
	SuccessURL   string
	FailureURL   string
	Timeout      time.Duration
	MaxRetries   uint64
}

// HMACGateway talks to a redirect-based provider that signs its messages with
// a shared HMAC-SHA256 secret.
type HMACGateway struct {
	cfg       GatewayConfig
	signer    *Signer
	status    *StatusClient
	processed ProcessedStore
	log       *zap.Logger
}

func NewHMACGateway(cfg GatewayConfig, processed ProcessedStore, log *zap.Logger) *HMACGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	log = log.With(zap.String("gateway", string(cfg.Method)))
	return &HMACGateway{
		cfg:       cfg,
		signer:    NewSigner(cfg.Secret),
		status:    NewStatusClient(cfg.StatusURL, cfg.Timeout, cfg.MaxRetries, log),
		processed: processed,
		log:       log,
	}
}

// callbackPayload is the base64 JSON envelope the provider appends to the
// success redirect.
type callbackPayload struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

func (p callbackPayload) fields() map[string]string {
	return map[string]string{
		"transaction_code":   p.TransactionCode,
		"status":             p.Status,
		"total_amount":       p.TotalAmount,
		"transaction_uuid":   p.TransactionUUID,
		"product_code":       p.ProductCode,
		"signed_field_names": p.SignedFieldNames,
	}
}

// requiredCallbackFields must all be covered by a callback signature. The
// redirect built by Initiate signs fewer fields, so its signature cannot be
// replayed with a forged status or transaction code.
var requiredCallbackFields = []string{"transaction_code", "status", "total_amount", "transaction_uuid", "product_code"}

func signsRequired(names []string) bool {
	signed := make(map[string]bool, len(names))
	for _, n := range names {
		signed[strings.TrimSpace(n)] = true
	}
	for _, n := range requiredCallbackFields {
		if !signed[n] {
			return false
		}
	}
	return true
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Initiate signs the order's amount and transaction id and returns the
// provider URL the customer must be sent to.
func (g *HMACGateway) Initiate(ctx context.Context, order *domain.Order) (*domain.RedirectDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if order.TransactionID == nil {
		return nil, fmt.Errorf("order %s has no transaction id", order.ID)
	}
	txn := *order.TransactionID

	total := formatAmount(order.TotalPrice)
	fields := map[string]string{
		"total_amount":     total,
		"transaction_uuid": txn,
		"product_code":     g.cfg.MerchantCode,
	}
	message, err := SignedMessage(DefaultSignedFields, fields)
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(g.cfg.PaymentURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment url: %w", err)
	}
	successURL, err := withOrderID(g.cfg.SuccessURL, order.ID.String())
	if err != nil {
		return nil, err
	}
	failureURL, err := withOrderID(g.cfg.FailureURL, order.ID.String())
	if err != nil {
		return nil, err
	}

	q := target.Query()
	q.Set("amount", formatAmount(order.TotalPrice.Sub(order.ShippingFee).Sub(order.ServiceCharge)))
	q.Set("tax_amount", "0")
	q.Set("product_service_charge", formatAmount(order.ServiceCharge))
	q.Set("product_delivery_charge", formatAmount(order.ShippingFee))
	q.Set("total_amount", total)
	q.Set("transaction_uuid", txn)
	q.Set("product_code", g.cfg.MerchantCode)
	q.Set("success_url", successURL)
	q.Set("failure_url", failureURL)
	q.Set("signed_field_names", strings.Join(DefaultSignedFields, ","))
	q.Set("signature", g.signer.Sign(message))
	target.RawQuery = q.Encode()

	g.log.Info("payment initiated",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_uuid", txn),
		zap.String("total_amount", total),
	)
	return &domain.RedirectDescriptor{
		Method:        g.cfg.Method,
		URL:           target.String(),
		TransactionID: txn,
	}, nil
}

func withOrderID(raw, orderID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse callback url: %w", err)
	}
	q := u.Query()
	q.Set("orderId", orderID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodePayload accepts standard or URL-safe base64, padded or not. A "+" that
// arrived unescaped in a query string has become a space and is put back.
func decodePayload(token string) (*callbackPayload, error) {
	token = strings.TrimRight(strings.ReplaceAll(token, " ", "+"), "=")
	raw, err := base64.RawStdEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(token)
	}
	if err != nil {
		return nil, domain.VerificationFailed("callback payload is not base64", err)
	}
	var p callbackPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.VerificationFailed("callback payload is not valid json", err)
	}
	return &p, nil
}

// Verify checks the callback signature, confirms the outcome with the
// provider's status endpoint and reports whether the payment settled.
func (g *HMACGateway) Verify(ctx context.Context, token string, order *domain.Order) (*domain.VerificationResult, error) {
	payload, err := decodePayload(token)
	if err != nil {
		return nil, err
	}

	names := strings.Split(payload.SignedFieldNames, ",")
	message, err := SignedMessage(names, payload.fields())
	if err != nil || !signsRequired(names) || !g.signer.Verify(message, payload.Signature) {
		g.log.Warn("payment callback signature mismatch",
			zap.String("order_id", order.ID.String()),
			zap.String("transaction_uuid", payload.TransactionUUID),
		)
		return nil, domain.ErrSignatureMismatch
	}

	if order.TransactionID == nil || payload.TransactionUUID != *order.TransactionID {
		return nil, domain.VerificationFailed("transaction does not belong to this order", nil)
	}
	if payload.ProductCode != g.cfg.MerchantCode {
		return nil, domain.VerificationFailed("unexpected merchant code", nil)
	}

	seen, err := g.processed.Seen(ctx, payload.TransactionUUID)
	if err != nil {
		g.log.Warn("processed transaction lookup failed", zap.Error(err))
	} else if seen {
		return &domain.VerificationResult{
			AlreadyProcessed: true,
			TransactionID:    payload.TransactionUUID,
		}, nil
	}

	total := formatAmount(order.TotalPrice)
	st, err := g.status.Check(ctx, g.cfg.MerchantCode, total, payload.TransactionUUID)
	if err != nil {
		return nil, err
	}

	if st.TransactionUUID != payload.TransactionUUID || st.ProductCode != g.cfg.MerchantCode {
		g.log.Warn("status response is for another transaction",
			zap.String("order_id", order.ID.String()),
			zap.String("transaction_uuid", st.TransactionUUID),
			zap.String("product_code", st.ProductCode),
		)
		return nil, domain.VerificationFailed("status response does not match the transaction", nil)
	}

	result := &domain.VerificationResult{
		TransactionID:  payload.TransactionUUID,
		ProviderStatus: st.Status,
	}
	switch st.Status {
	case StatusComplete:
	case StatusPending, StatusAmbiguous:
		return nil, domain.VerificationFailed("payment is not settled yet", nil)
	default:
		g.log.Info("payment not completed",
			zap.String("order_id", order.ID.String()),
			zap.String("provider_status", st.Status),
		)
		return result, nil
	}

	amount, err := decimal.NewFromString(st.TotalAmount.String())
	if err != nil {
		return nil, domain.VerificationFailed("unreadable settled amount", err)
	}
	if !amount.Equal(order.TotalPrice) {
		g.log.Warn("settled amount differs from order total",
			zap.String("order_id", order.ID.String()),
			zap.String("settled", amount.String()),
			zap.String("expected", order.TotalPrice.String()),
		)
		return nil, domain.VerificationFailed("settled amount does not match order total", nil)
	}

	result.Success = true
	result.Amount = amount
	result.ExternalTransactionID = st.RefID
	if result.ExternalTransactionID == "" {
		result.ExternalTransactionID = payload.TransactionCode
	}
	return result, nil
}

func (g *HMACGateway) MarkReconciled(ctx context.Context, transactionID string) error {
	return g.processed.MarkReconciled(ctx, transactionID)
}
