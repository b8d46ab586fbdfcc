package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReservationPolicy decides when an online-payment order takes its stock.
type ReservationPolicy string

const (
	// ReservationNone commits stock only once the payment is verified.
	ReservationNone ReservationPolicy = "none"
	// ReservationSoft commits stock at creation and hands it back if the
	// payment is not completed before the reservation expires.
	ReservationSoft ReservationPolicy = "soft"
)

const (
	orderCacheTTL      = 10 * time.Second
	expirySweepBatch   = 100
	defaultPageLimit   = 10
	maxPageLimit       = 100
	defaultLockRetries = 3
)

// promoUsageStatuses are the statuses of an order that has reached
// CONFIRMED. Such an order consumes its promo code.
var promoUsageStatuses = []domain.OrderStatus{
	domain.StatusConfirmed,
	domain.StatusDelayed,
	domain.StatusShipped,
	domain.StatusDelivered,
	domain.StatusReturned,
}

type Config struct {
	Reservation    ReservationPolicy
	ReservationTTL time.Duration
	LockRetries    uint64
	GatewayTimeout time.Duration
}

type OrderService struct {
	repo     *repository.Repository
	ledger   *StockLedger
	pricing  *Calculator
	carts    *CartReader
	gateways map[domain.PaymentMethod]PaymentGateway
	notifier Notifier
	cfg      Config
	log      *zap.Logger

	redisClient OrderCacheClient
	now         func() time.Time
}

func NewOrderService(
	repo *repository.Repository,
	pricing *Calculator,
	gateways map[domain.PaymentMethod]PaymentGateway,
	notifier Notifier,
	cfg Config,
	log *zap.Logger,
) *OrderService {
	if cfg.Reservation == "" {
		cfg.Reservation = ReservationNone
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 15 * time.Minute
	}
	if cfg.LockRetries == 0 {
		cfg.LockRetries = defaultLockRetries
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if gateways == nil {
		gateways = map[domain.PaymentMethod]PaymentGateway{}
	}
	return &OrderService{
		repo:     repo,
		ledger:   NewStockLedger(log),
		pricing:  pricing,
		carts:    NewCartReader(log),
		gateways: gateways,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (u *OrderService) SetRedisClient(client OrderCacheClient) {
	u.redisClient = client
}

// SetClock replaces the time source. Used by tests and the expiry sweep.
func (u *OrderService) SetClock(now func() time.Time) {
	u.now = now
}

type CreateOrderRequest struct {
	ShippingAddress domain.AddressSnapshot
	PaymentMethod   domain.PaymentMethod
	IsBuyNow        bool
	ProductID       *uint64
	VariantID       *uint64
	Quantity        *int
	PromoCode       *string
	ServiceCharge   *decimal.Decimal
}

// ItemSource picks the line source the request describes.
func (r CreateOrderRequest) ItemSource(userID uint64) (ItemSource, error) {
	if !r.IsBuyNow {
		return CartSource{UserID: userID}, nil
	}
	if r.ProductID == nil {
		return nil, domain.InvalidRequest("productId is required for buy now")
	}
	qty := 1
	if r.Quantity != nil {
		qty = *r.Quantity
	}
	return BuyNowSource{ProductID: *r.ProductID, VariantID: r.VariantID, Quantity: qty}, nil
}

type CreateOrderResult struct {
	Order    *domain.Order
	Redirect *domain.RedirectDescriptor
}

type OrderPage struct {
	Items []domain.Order
	Total int64
	Page  int
	Limit int
}

func (u *OrderService) CreateOrder(ctx context.Context, userID uint64, req CreateOrderRequest) (*CreateOrderResult, error) {
	method := req.PaymentMethod
	if !method.Valid() {
		return nil, domain.InvalidPaymentMethod(method)
	}
	var gateway PaymentGateway
	if method.Online() {
		gateway = u.gateways[method]
		if gateway == nil {
			return nil, domain.InvalidPaymentMethod(method)
		}
	}

	addr := req.ShippingAddress.Normalize()
	if missing := addr.Missing(); len(missing) > 0 {
		return nil, domain.AddressIncomplete(missing)
	}

	serviceCharge := decimal.Zero
	if req.ServiceCharge != nil {
		if req.ServiceCharge.IsNegative() {
			return nil, domain.InvalidRequest("serviceCharge must not be negative")
		}
		serviceCharge = *req.ServiceCharge
	}

	src, err := req.ItemSource(userID)
	if err != nil {
		return nil, err
	}
	items, err := u.requestedItems(ctx, src)
	if err != nil {
		return nil, err
	}
	lines, err := u.resolveLines(ctx, items)
	if err != nil {
		return nil, err
	}

	stockLines := make([]domain.StockLine, len(lines))
	priceLines := make([]PriceLine, len(lines))
	for i, l := range lines {
		stockLines[i] = domain.StockLine{Key: l.StockKey(), Quantity: l.Quantity}
		priceLines[i] = l.PriceLine()
	}
	if err := u.ledger.ValidateAvailability(ctx, u.repo.Stock, stockLines); err != nil {
		return nil, err
	}

	promo, err := u.eligiblePromo(ctx, userID, req.PromoCode)
	if err != nil {
		return nil, err
	}
	quote, err := u.pricing.Quote(addr.District, priceLines, promo, serviceCharge)
	if err != nil {
		return nil, err
	}

	commitNow := !method.Online() || u.cfg.Reservation == ReservationSoft
	var order *domain.Order
	err = u.inTx(ctx, func(tx *repository.Repository) error {
		now := u.now()
		o := &domain.Order{
			ID:              uuid.New(),
			UserID:          userID,
			Lines:           buildOrderLines(lines, quote.UnitPrices),
			ShippingAddress: addr,
			Subtotal:        quote.Subtotal,
			DiscountAmount:  quote.DiscountAmount,
			ShippingFee:     quote.ShippingFee,
			ServiceCharge:   quote.ServiceCharge,
			TotalPrice:      quote.Total,
			PromoCode:       quote.PromoCode,
			PaymentMethod:   method,
			PaymentStatus:   domain.PaymentUnpaid,
			Status:          domain.InitialStatus(method),
			Source:          src.Kind(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if method.Online() {
			txn := uuid.NewString()
			o.TransactionID = &txn
		}

		if _, err := tx.Addresses.Upsert(ctx, userID, addr); err != nil {
			return err
		}
		if commitNow {
			if err := u.ledger.Commit(ctx, tx, userID, o.StockLines()); err != nil {
				return err
			}
			o.StockCommitted = true
			if method.Online() {
				until := now.Add(u.cfg.ReservationTTL)
				o.ReservedUntil = &until
			}
		}
		if err := tx.Orders.Create(ctx, o); err != nil {
			return err
		}
		if !method.Online() && src.Kind() == domain.SourceCart {
			if err := u.carts.Clear(ctx, tx, userID, o.StockLines()); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.Uint64("user_id", userID),
		zap.String("payment_method", string(method)),
		zap.String("status", string(order.Status)),
		zap.String("total", order.TotalPrice.String()),
	)
	go u.notifyOrderPlaced(context.WithoutCancel(ctx), snapshot(order))

	result := &CreateOrderResult{Order: order}
	if gateway == nil {
		return result, nil
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	redirect, err := gateway.Initiate(gctx, order)
	if err != nil {
		u.log.Warn("payment initiation failed, order left pending",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return result, domain.Wrap(domain.KindGatewayUnavailable, "payment could not be started, the order is kept pending", err)
	}
	result.Redirect = redirect
	return result, nil
}

// eligiblePromo returns the promo code when it exists, is currently valid and
// the user has not consumed it yet. Anything else silently means no discount.
func (u *OrderService) eligiblePromo(ctx context.Context, userID uint64, code *string) (*domain.PromoCode, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	c := strings.TrimSpace(*code)

	var (
		promo *domain.PromoCode
		used  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := u.repo.Promos.FindByCode(gctx, c)
		promo = p
		return err
	})
	g.Go(func() error {
		ok, err := u.repo.Orders.HasPromoUsage(gctx, userID, c, promoUsageStatuses)
		used = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if promo == nil || !promo.ValidAt(u.now()) || used {
		u.log.Debug("promo code not applied",
			zap.String("code", c),
			zap.Uint64("user_id", userID),
			zap.Bool("found", promo != nil),
			zap.Bool("already_used", used),
		)
		return nil, nil
	}
	return promo, nil
}

func (u *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, userID uint64) (*domain.Order, error) {
	var (
		order    *domain.Order
		previous domain.OrderStatus
	)
	err := u.inTx(ctx, func(tx *repository.Repository) error {
		o, err := u.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrForbidden
		}
		if !o.Status.Cancellable() {
			return domain.CannotCancel(o.Status)
		}
		previous = o.Status
		if err := u.cancelLocked(ctx, tx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.afterStatusChange(ctx, order, previous)
	return order, nil
}

func (u *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if _, ok := domain.ParseOrderStatus(string(status)); !ok {
		return nil, domain.InvalidRequest(fmt.Sprintf("unknown order status %q", status))
	}

	var (
		order    *domain.Order
		previous domain.OrderStatus
		changed  bool
	)
	err := u.inTx(ctx, func(tx *repository.Repository) error {
		changed = false
		o, err := u.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if o.Status == status {
			return nil
		}
		if !domain.CanTransition(o.Status, status) {
			return domain.InvalidTransition(o.Status, status)
		}
		previous = o.Status
		changed = true

		if status == domain.StatusCancelled {
			return u.cancelLocked(ctx, tx, o)
		}
		o.Status = status
		if status == domain.StatusDelivered &&
			o.PaymentMethod == domain.PaymentCashOnDelivery &&
			o.PaymentStatus == domain.PaymentUnpaid {
			o.PaymentStatus = domain.PaymentPaid
		}
		o.UpdatedAt = u.now()
		return tx.Orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		u.afterStatusChange(ctx, order, previous)
	}
	return order, nil
}

// ReconcilePayment applies a gateway callback to an order awaiting payment.
// Repeated callbacks for the same transaction return the order without
// changing it. A payment that settles when it can no longer be honoured (stock
// gone, or the order cancelled while the customer was paying) is recorded on
// the order as PAID and an error asking for a refund is returned with it.
func (u *OrderService) ReconcilePayment(ctx context.Context, token string, orderID uuid.UUID) (*domain.Order, error) {
	current, err := u.repo.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.NotFound("order", orderID)
	}
	gateway := u.gateways[current.PaymentMethod]
	if gateway == nil {
		return nil, domain.InvalidPaymentMethod(current.PaymentMethod)
	}
	if !awaitingPayment(current) {
		u.log.Info("payment callback for settled order ignored",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(current.Status)),
			zap.String("payment_status", string(current.PaymentStatus)),
		)
		return current, nil
	}

	res, err := gateway.Verify(ctx, token, current)
	if err != nil {
		u.log.Warn("payment verification failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if res.AlreadyProcessed {
		return u.GetOrderByID(ctx, orderID)
	}

	var (
		order    *domain.Order
		previous domain.OrderStatus
		changed  bool
		settled  bool
		refund   bool
		stockErr error
	)
	err = u.inTx(ctx, func(tx *repository.Repository) error {
		changed, settled, refund, stockErr = false, false, false, nil
		o, err := u.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if !awaitingPayment(o) {
			// A concurrent callback got here first.
			return nil
		}
		settled = true

		if o.Status == domain.StatusCancelled {
			if !res.Success {
				return nil
			}
			refund = true
			u.recordPayment(o, res)
			return tx.Orders.Update(ctx, o)
		}

		target := domain.StatusConfirmed
		if !res.Success {
			target = domain.StatusCancelled
		}
		if !domain.CanReconcile(o.Status, target) {
			return nil
		}
		previous = o.Status
		changed = true
		if !res.Success {
			return u.cancelLocked(ctx, tx, o)
		}

		u.recordPayment(o, res)
		if !o.StockCommitted {
			err := u.ledger.Commit(ctx, tx, o.UserID, o.StockLines())
			if errors.Is(err, domain.ErrInsufficientStock) {
				stockErr = err
				return u.cancelLocked(ctx, tx, o)
			}
			if err != nil {
				return err
			}
			o.StockCommitted = true
		}
		o.Status = domain.StatusConfirmed
		o.ReservedUntil = nil
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		if o.Source == domain.SourceCart {
			return u.carts.Clear(ctx, tx, o.UserID, o.StockLines())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settled {
		if err := gateway.MarkReconciled(ctx, res.TransactionID); err != nil {
			u.log.Warn("failed to record reconciled transaction",
				zap.String("transaction_id", res.TransactionID),
				zap.Error(err),
			)
		}
	}
	if changed {
		u.log.Info("payment reconciled",
			zap.String("order_id", orderID.String()),
			zap.Bool("success", res.Success),
			zap.String("status", string(order.Status)),
			zap.String("payment_status", string(order.PaymentStatus)),
		)
		u.afterStatusChange(ctx, order, previous)
	}
	if refund {
		u.refreshOrder(ctx, order)
		u.log.Error("payment settled for a cancelled order, refund required",
			zap.String("order_id", orderID.String()),
			zap.String("external_transaction_id", res.ExternalTransactionID),
			zap.String("amount", res.Amount.String()),
		)
		return order, domain.RefundRequired(order.ID, res.ExternalTransactionID)
	}
	if stockErr != nil {
		u.log.Error("paid order cancelled for lack of stock, refund required",
			zap.String("order_id", orderID.String()),
			zap.Error(stockErr),
		)
		return order, stockErr
	}
	return order, nil
}

// awaitingPayment reports whether a gateway outcome can still change the
// order. A cancelled online order that was never paid still listens, so that
// a payment completed after the cancellation is not lost.
func awaitingPayment(o *domain.Order) bool {
	if !o.PaymentMethod.Online() || o.PaymentStatus != domain.PaymentUnpaid {
		return false
	}
	return o.Status == domain.StatusPending || o.Status == domain.StatusCancelled
}

func (u *OrderService) recordPayment(o *domain.Order, res *domain.VerificationResult) {
	ext := res.ExternalTransactionID
	o.ExternalTransactionID = &ext
	o.PaymentStatus = domain.PaymentPaid
	o.UpdatedAt = u.now()
}

// HandlePaymentCancel is the gateway's failure redirect: the customer gave up
// before paying. Cancelling an already cancelled order is a no-op. The
// transaction is left unmarked so that a payment the provider completes anyway
// still reaches ReconcilePayment.
func (u *OrderService) HandlePaymentCancel(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var (
		order    *domain.Order
		previous domain.OrderStatus
		changed  bool
	)
	err := u.inTx(ctx, func(tx *repository.Repository) error {
		changed = false
		o, err := u.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if !o.PaymentMethod.Online() {
			return domain.InvalidPaymentMethod(o.PaymentMethod)
		}
		if o.Status == domain.StatusCancelled {
			return nil
		}
		if o.Status != domain.StatusPending {
			return domain.CannotCancel(o.Status)
		}
		previous = o.Status
		changed = true
		return u.cancelLocked(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		u.afterStatusChange(ctx, order, previous)
	}
	return order, nil
}

// ExpireStaleReservations cancels pending online orders whose reservation ran
// out and hands their stock back. It returns how many orders it cancelled.
func (u *OrderService) ExpireStaleReservations(ctx context.Context) (int, error) {
	now := u.now()
	stale, err := u.repo.Orders.ListExpiredPending(ctx, now, expirySweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		var (
			order   *domain.Order
			changed bool
		)
		err := u.inTx(ctx, func(tx *repository.Repository) error {
			changed = false
			o, err := u.lockOrder(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			order = o
			if o.Status != domain.StatusPending || o.ReservedUntil == nil || o.ReservedUntil.After(now) {
				return nil
			}
			changed = true
			return u.cancelLocked(ctx, tx, o)
		})
		if err != nil {
			u.log.Warn("failed to expire reservation",
				zap.String("order_id", candidate.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if changed {
			expired++
			u.afterStatusChange(ctx, order, domain.StatusPending)
		}
	}
	if expired > 0 {
		u.log.Info("expired stale reservations", zap.Int("count", expired))
	}
	return expired, nil
}

func (u *OrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if o := u.cachedOrder(ctx, id); o != nil {
		return o, nil
	}
	o, err := u.repo.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.NotFound("order", id)
	}
	u.cacheOrder(ctx, o)
	return o, nil
}

func (u *OrderService) ListOrdersByUser(ctx context.Context, userID uint64, page, limit int) (*OrderPage, error) {
	return u.listOrders(ctx, repository.OrderListFilter{UserID: &userID}, page, limit)
}

func (u *OrderService) ListOrdersByVendor(ctx context.Context, vendorID uint64, page, limit int) (*OrderPage, error) {
	return u.listOrders(ctx, repository.OrderListFilter{VendorID: &vendorID}, page, limit)
}

func (u *OrderService) listOrders(ctx context.Context, f repository.OrderListFilter, page, limit int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	f.Limit = limit
	f.Offset = (page - 1) * limit

	items, total, err := u.repo.Orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *OrderService) lockOrder(ctx context.Context, tx *repository.Repository, id uuid.UUID) (*domain.Order, error) {
	o, err := tx.Orders.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.NotFound("order", id)
	}
	return o, nil
}

// cancelLocked flips a locked order to CANCELLED and restores whatever stock
// it holds.
func (u *OrderService) cancelLocked(ctx context.Context, tx *repository.Repository, o *domain.Order) error {
	if o.StockCommitted {
		if err := u.ledger.Restore(ctx, tx, o.StockLines()); err != nil {
			return err
		}
		o.StockCommitted = false
	}
	o.Status = domain.StatusCancelled
	o.ReservedUntil = nil
	o.UpdatedAt = u.now()
	return tx.Orders.Update(ctx, o)
}

// inTx runs fn in a transaction and retries it when a row lock could not be
// taken.
func (u *OrderService) inTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, u.cfg.LockRetries), ctx)

	err := backoff.Retry(func() error {
		err := u.repo.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrLockConflict) {
			u.log.Warn("lock conflict, retrying transaction", zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if errors.Is(err, repository.ErrLockConflict) {
		return domain.Wrap(domain.KindConflict, "order data is busy, try again", err)
	}
	return err
}

func (u *OrderService) afterStatusChange(ctx context.Context, o *domain.Order, previous domain.OrderStatus) {
	u.refreshOrder(ctx, o)
	u.log.Info("order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(o.Status)),
	)
	go u.notifyStatusChanged(context.WithoutCancel(ctx), snapshot(o), previous)
}

func snapshot(o *domain.Order) *domain.Order {
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &cp
}

func (u *OrderService) notifyOrderPlaced(ctx context.Context, o *domain.Order) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.NotifyOrderPlaced(ctx, o); err != nil {
		u.log.Warn("failed to notify order placed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func (u *OrderService) notifyStatusChanged(ctx context.Context, o *domain.Order, previous domain.OrderStatus) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.NotifyStatusChanged(ctx, o, previous); err != nil {
		u.log.Warn("failed to notify status change", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func orderCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("order:%s", id)
}

func (u *OrderService) cachedOrder(ctx context.Context, id uuid.UUID) *domain.Order {
	if u.redisClient == nil {
		return nil
	}
	cached, err := u.redisClient.Get(ctx, orderCacheKey(id)).Result()
	if err != nil {
		return nil
	}
	var o domain.Order
	if err := json.Unmarshal([]byte(cached), &o); err != nil {
		return nil
	}
	return &o
}

// cacheOrder fills an empty slot only. A reader holding a row it loaded before
// a concurrent write committed cannot replace what refreshOrder stored.
func (u *OrderService) cacheOrder(ctx context.Context, o *domain.Order) {
	if u.redisClient == nil {
		return
	}
	if data, err := json.Marshal(o); err == nil {
		u.redisClient.SetNX(ctx, orderCacheKey(o.ID), data, orderCacheTTL)
	}
}

// refreshOrder stores the committed state of a changed order, dropping the key
// when that fails.
func (u *OrderService) refreshOrder(ctx context.Context, o *domain.Order) {
	if u.redisClient == nil {
		return
	}
	data, err := json.Marshal(o)
	if err == nil {
		err = u.redisClient.Set(ctx, orderCacheKey(o.ID), data, orderCacheTTL).Err()
	}
	if err == nil {
		return
	}
	if err := u.redisClient.Del(ctx, orderCacheKey(o.ID)).Err(); err != nil {
		u.log.Warn("failed to invalidate order cache", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}
