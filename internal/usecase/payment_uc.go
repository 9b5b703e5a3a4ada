package usecase

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/adapter"
	"student-writer-backend/internal/domain/ports/repository"
	"student-writer-backend/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// approveTimeout bounds the synchronous provider confirmation call.
const approveTimeout = 10 * time.Second

// Locker serializes confirmations per order. Implemented by infra/redis.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type PaymentUseCase interface {
	// Start creates a checkout session and returns the persisted order plus
	// the provider redirect target. It either returns a session or an error,
	// never both; session-creation retries are the caller's decision.
	Start(ctx context.Context, itemName string, amount int64, orderID string) (*model.PaymentOrder, adapter.CheckoutSession, error)
	// Confirm re-verifies the approval callback server-to-server and issues a
	// redemption code exactly once per order, no matter how many times the
	// provider redirect is replayed.
	Confirm(ctx context.Context, tid, orderID, pgToken string) (*model.RedemptionCode, error)
}

type paymentUC struct {
	orders  repository.OrderRepository
	codes   repository.CodeRepository
	issuer  CodeUseCase
	gateway adapter.PaymentGateway
	tm      repository.TransactionManager
	locker  Locker

	hostURL      string // public https base for provider callbacks
	defaultQuota int
	log          *zerolog.Logger
}

func NewPaymentUseCase(
	orders repository.OrderRepository,
	codes repository.CodeRepository,
	issuer CodeUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	locker Locker,
	hostURL string,
	defaultQuota int,
	logger *zerolog.Logger,
) *paymentUC {
	if defaultQuota <= 0 {
		defaultQuota = 100
	}
	return &paymentUC{
		orders: orders, codes: codes, issuer: issuer, gateway: gateway,
		tm: tm, locker: locker, hostURL: hostURL, defaultQuota: defaultQuota, log: logger,
	}
}

func (u *paymentUC) Start(ctx context.Context, itemName string, amount int64, orderID string) (*model.PaymentOrder, adapter.CheckoutSession, error) {
	if amount <= 0 {
		return nil, adapter.CheckoutSession{}, domain.ErrInvalidArgument
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}

	now := time.Now()
	o := &model.PaymentOrder{
		ID:        ulid.Make().String(),
		OrderID:   orderID,
		ItemName:  itemName,
		Amount:    amount,
		Status:    model.OrderStatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.orders.Save(ctx, repository.NoTX, o); err != nil {
		return nil, adapter.CheckoutSession{}, err
	}

	session, err := u.gateway.Ready(ctx, adapter.CheckoutRequest{
		OrderID:     orderID,
		BuyerID:     "user_1",
		ItemName:    itemName,
		Quantity:    1,
		TotalAmount: amount,
		ApprovalURL: u.callbackURL("/payment/approve", orderID),
		CancelURL:   u.callbackURL("/payment/cancel", ""),
		FailURL:     u.callbackURL("/payment/fail", ""),
	})
	if err != nil {
		metrics.IncPayment("ready_failed")
		_ = u.orders.MarkFailed(ctx, repository.NoTX, o.ID)
		return nil, adapter.CheckoutSession{}, err
	}
	if err := u.orders.SetTID(ctx, repository.NoTX, o.ID, session.TID); err != nil {
		return nil, adapter.CheckoutSession{}, err
	}
	o.TID = session.TID
	metrics.IncPayment("initiated")
	u.log.Info().Str("order_id", orderID).Str("tid", session.TID).Int64("amount", amount).Msg("checkout session created")
	return o, session, nil
}

func (u *paymentUC) Confirm(ctx context.Context, tid, orderID, pgToken string) (*model.RedemptionCode, error) {
	if orderID == "" || pgToken == "" || tid == "" {
		return nil, domain.ErrInvalidArgument
	}

	// Serialize confirmations per order; the provider can redirect the same
	// browser twice and both requests land here concurrently.
	lockKey := "payment:confirm:" + orderID
	token, err := u.locker.TryLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		return nil, domain.ErrOrderLocked
	}
	defer func() { _ = u.locker.Unlock(context.Background(), lockKey, token) }()

	o, err := u.orders.FindByOrderID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == model.OrderStatusIssued {
		return u.issuedCode(ctx, o)
	}
	if o.Status == model.OrderStatusFailed {
		// A failed confirmation is fatal for the transaction by design.
		return nil, &domain.ProviderError{StatusCode: 0, Body: "order already failed"}
	}

	// The redirect parameters are attacker-controlled; the only trusted fact
	// is the result of this server-to-server approve call.
	actx, cancel := context.WithTimeout(ctx, approveTimeout)
	defer cancel()
	approval, verifyErr := u.gateway.Approve(actx, tid, orderID, pgToken)
	if verifyErr == nil && approval.Amount != 0 && approval.Amount != o.Amount {
		u.log.Warn().Str("order_id", orderID).Int64("expected", o.Amount).Int64("got", approval.Amount).Msg("approve amount mismatch")
		verifyErr = &domain.ProviderError{StatusCode: 0, Body: "approved amount does not match order"}
	}
	if verifyErr != nil {
		metrics.IncPayment("failed")
		_ = u.orders.MarkFailed(ctx, repository.NoTX, o.ID)
		return nil, verifyErr
	}

	var issued *model.RedemptionCode
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Re-read under FOR UPDATE: a concurrent confirmation may have issued
		// between our first read and this transaction.
		cur, err := u.orders.FindByOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if cur.Status == model.OrderStatusIssued {
			issued, err = u.issuedCodeTx(ctx, tx, cur)
			return err
		}
		rc, err := u.issuer.Issue(ctx, tx, u.defaultQuota)
		if err != nil {
			return err
		}
		won, err := u.orders.MarkIssued(ctx, tx, cur.ID, rc.ID, approval.AID)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrOrderAlreadyIssued
		}
		issued = rc
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderAlreadyIssued) {
			// Lost the race after all; the winner's code is authoritative.
			if o, ferr := u.orders.FindByOrderID(ctx, repository.NoTX, orderID); ferr == nil {
				return u.issuedCode(ctx, o)
			}
		}
		return nil, err
	}
	metrics.IncPayment("succeeded")
	metrics.AddPaymentRevenue("krw", o.Amount)
	u.log.Info().Str("order_id", orderID).Str("aid", approval.AID).Str("code_id", issued.ID).Msg("payment confirmed, code issued")
	return issued, nil
}

func (u *paymentUC) issuedCode(ctx context.Context, o *model.PaymentOrder) (*model.RedemptionCode, error) {
	return u.issuedCodeTx(ctx, repository.NoTX, o)
}

func (u *paymentUC) issuedCodeTx(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) (*model.RedemptionCode, error) {
	if o.CodeID == nil {
		return nil, domain.ErrNotFound
	}
	return u.codes.FindByID(ctx, tx, *o.CodeID)
}

func (u *paymentUC) callbackURL(path, orderID string) string {
	full := u.hostURL + path
	if orderID != "" {
		full += "?order_id=" + url.QueryEscape(orderID)
	}
	return full
}
