package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CreateOrder_COD(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	res, err := f.svc.CreateOrder(ctx, 7, buyNow(productDiscounted, 2, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Redirect)

	o := res.Order
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, domain.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, domain.SourceBuyNow, o.Source)
	require.Len(t, o.Lines, 1)
	assertMoney(t, "900", o.Lines[0].UnitPrice)
	assertMoney(t, "1800", o.Lines[0].LineTotal)
	assertMoney(t, "1800", o.Subtotal)
	assertMoney(t, "100", o.ShippingFee)
	assertMoney(t, "1900", o.TotalPrice)
	assert.Nil(t, o.PromoCode)
	assert.Nil(t, o.TransactionID)

	assert.Equal(t, 3, f.productQty(t, productDiscounted))
	stored, ok := f.store.Order(o.ID)
	require.True(t, ok)
	assert.True(t, stored.StockCommitted)
	f.expectEvent(t, "placed")
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		userID  uint64
		setup   func(f *fixture)
		req     func() services.CreateOrderRequest
		wantErr error
	}{
		{
			name:   "unknown payment method",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(productDiscounted, 1, domain.PaymentMethod("BITCOIN"))
			},
			wantErr: domain.ErrInvalidPaymentMethod,
		},
		{
			name:   "online method without a configured gateway",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(productDiscounted, 1, domain.PaymentKhalti)
			},
			wantErr: domain.ErrInvalidPaymentMethod,
		},
		{
			name:   "address missing district",
			userID: 1,
			req: func() services.CreateOrderRequest {
				r := buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery)
				r.ShippingAddress.District = "  "
				return r
			},
			wantErr: domain.ErrAddressIncomplete,
		},
		{
			name:   "negative service charge",
			userID: 1,
			req: func() services.CreateOrderRequest {
				r := buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery)
				r.ServiceCharge = ptr(decimal.NewFromInt(-5))
				return r
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:   "empty cart",
			userID: 42,
			req: func() services.CreateOrderRequest {
				return services.CreateOrderRequest{ShippingAddress: kathmandu(), PaymentMethod: domain.PaymentCashOnDelivery}
			},
			wantErr: domain.ErrEmptyCart,
		},
		{
			name:   "product with variants needs a variant",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(productVariants, 1, domain.PaymentCashOnDelivery)
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:   "quantity above limit",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(productDiscounted, domain.MaxLineQuantity+1, domain.PaymentCashOnDelivery)
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:   "unknown product",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(999, 1, domain.PaymentCashOnDelivery)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:   "vendor without district cannot be priced",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(productNoDistrict, 1, domain.PaymentCashOnDelivery)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:   "more than in stock",
			userID: 1,
			req: func() services.CreateOrderRequest {
				return buyNow(productDiscounted, 6, domain.PaymentCashOnDelivery)
			},
			wantErr: domain.ErrInsufficientStock,
		},
		{
			name:   "cart lines are merged before the stock check",
			userID: 9,
			setup: func(f *fixture) {
				f.store.PutCart(9,
					domain.CartItem{ProductID: productDiscounted, Quantity: 3},
					domain.CartItem{ProductID: productDiscounted, Quantity: 3},
				)
			},
			req: func() services.CreateOrderRequest {
				return services.CreateOrderRequest{ShippingAddress: kathmandu(), PaymentMethod: domain.PaymentCashOnDelivery}
			},
			wantErr: domain.ErrInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, services.Config{})
			if tt.setup != nil {
				tt.setup(f)
			}
			res, err := f.svc.CreateOrder(context.Background(), tt.userID, tt.req())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.store.OrderCount())
			assert.Equal(t, 5, f.productQty(t, productDiscounted))
		})
	}
}

func TestOrderService_CreateOrder_FromCart(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	f.store.PutCart(7,
		domain.CartItem{ProductID: productDiscounted, Quantity: 1},
		domain.CartItem{ProductID: productVariants, VariantID: ptr(variantRed), Quantity: 2},
	)
	f.store.PutCart(8, domain.CartItem{ProductID: productLastUnit, Quantity: 1})
	f.store.PutCart(9, domain.CartItem{ProductID: productLastUnit, Quantity: 1})

	res, err := f.svc.CreateOrder(ctx, 9, services.CreateOrderRequest{
		ShippingAddress: kathmandu(),
		PaymentMethod:   domain.PaymentCashOnDelivery,
	})
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	// user 9 took the last singing bowl, so it leaves user 8's cart too
	assert.Equal(t, 0, f.productQty(t, productLastUnit))
	p, _ := f.store.Product(productLastUnit)
	assert.Equal(t, domain.StockOutOfStock, p.Status)
	cart8, _ := f.store.Cart(8)
	assert.Empty(t, cart8.Items)
	cart9, _ := f.store.Cart(9)
	assert.Empty(t, cart9.Items)
	assert.Equal(t, domain.SourceCart, res.Order.Source)
	// Lalitpur shares the valley metro group with Kathmandu
	assertMoney(t, "100", res.Order.ShippingFee)

	res, err = f.svc.CreateOrder(ctx, 7, services.CreateOrderRequest{
		ShippingAddress: kathmandu(),
		PaymentMethod:   domain.PaymentCashOnDelivery,
		ServiceCharge:   ptr(decimal.NewFromInt(25)),
	})
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	o := res.Order
	require.Len(t, o.Lines, 2)
	assertMoney(t, "750", o.Lines[1].UnitPrice)
	assertMoney(t, "2400", o.Subtotal)
	// one local district plus one remote district
	assertMoney(t, "300", o.ShippingFee)
	assertMoney(t, "25", o.ServiceCharge)
	assertMoney(t, "2725", o.TotalPrice)
	assert.Equal(t, 4, f.productQty(t, productDiscounted))
	assert.Equal(t, 1, f.variantQty(t, variantRed))
}

func TestOrderService_CreateOrder_PromoSingleUse(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()
	f.store.PutPromo(domain.PromoCode{
		Code: "DASHAIN10", DiscountPercentage: decimal.NewFromInt(10),
		AppliesTo: domain.PromoLineTotal, Active: true,
	})
	f.store.PutPromo(domain.PromoCode{
		Code: "FREESHIP", DiscountPercentage: decimal.NewFromInt(100),
		AppliesTo: domain.PromoShippingFee, Active: true,
	})

	req := buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery)
	req.PromoCode = ptr("DASHAIN10")
	res, err := f.svc.CreateOrder(ctx, 7, req)
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	require.NotNil(t, res.Order.PromoCode)
	assert.Equal(t, "DASHAIN10", *res.Order.PromoCode)
	assertMoney(t, "90", res.Order.DiscountAmount)
	assertMoney(t, "910", res.Order.TotalPrice)

	res, err = f.svc.CreateOrder(ctx, 7, req)
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	assert.Nil(t, res.Order.PromoCode)
	assertMoney(t, "0", res.Order.DiscountAmount)
	assertMoney(t, "1000", res.Order.TotalPrice)

	req.PromoCode = ptr("FREESHIP")
	res, err = f.svc.CreateOrder(ctx, 7, req)
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	assertMoney(t, "100", res.Order.DiscountAmount)
	assertMoney(t, "900", res.Order.TotalPrice)

	req.PromoCode = ptr("NOSUCHCODE")
	res, err = f.svc.CreateOrder(ctx, 8, req)
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	assert.Nil(t, res.Order.PromoCode)
}

func TestOrderService_CreateOrder_PromoUsedByStatus(t *testing.T) {
	tests := []struct {
		name     string
		path     []domain.OrderStatus
		wantUsed bool
	}{
		{"confirmed", nil, true},
		{"delayed", []domain.OrderStatus{domain.StatusDelayed}, true},
		{"shipped", []domain.OrderStatus{domain.StatusShipped}, true},
		{"delivered", []domain.OrderStatus{domain.StatusShipped, domain.StatusDelivered}, true},
		{"cancelled", []domain.OrderStatus{domain.StatusCancelled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, services.Config{})
			ctx := context.Background()
			f.store.PutPromo(domain.PromoCode{
				Code: "TIHAR5", DiscountPercentage: decimal.NewFromInt(5),
				AppliesTo: domain.PromoLineTotal, Active: true,
			})
			req := buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery)
			req.PromoCode = ptr("TIHAR5")

			first, err := f.svc.CreateOrder(ctx, 7, req)
			require.NoError(t, err)
			f.expectEvent(t, "placed")
			require.NotNil(t, first.Order.PromoCode)
			for _, st := range tt.path {
				_, err := f.svc.UpdateOrderStatus(ctx, first.Order.ID, st)
				require.NoError(t, err)
				f.expectEvent(t, "status:"+string(st))
			}

			second, err := f.svc.CreateOrder(ctx, 7, req)
			require.NoError(t, err)
			f.expectEvent(t, "placed")
			if tt.wantUsed {
				assert.Nil(t, second.Order.PromoCode)
				assertMoney(t, "0", second.Order.DiscountAmount)
			} else {
				require.NotNil(t, second.Order.PromoCode)
				assertMoney(t, "45", second.Order.DiscountAmount)
			}
		})
	}
}

func TestOrderService_PriceSnapshotImmutable(t *testing.T) {
	f := newFixture(t, services.Config{})
	res, err := f.svc.CreateOrder(context.Background(), 7, buyNow(productDiscounted, 2, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	p, _ := f.store.Product(productDiscounted)
	p.BasePrice = decimal.NewFromInt(5000)
	p.DiscountType = domain.DiscountNone
	f.store.PutProduct(p)

	stored, ok := f.store.Order(res.Order.ID)
	require.True(t, ok)
	assertMoney(t, "1900", stored.TotalPrice)
	assertMoney(t, "900", stored.Lines[0].UnitPrice)
}

func TestOrderService_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	const buyers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		shortages int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := f.svc.CreateOrder(ctx, userID, buyNow(productLastUnit, 1, domain.PaymentCashOnDelivery))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInsufficientStock):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, buyers-1, shortages)
	assert.Equal(t, 1, f.store.OrderCount())
	assert.Equal(t, 0, f.productQty(t, productLastUnit))
}

func TestOrderService_ConcurrentPartialStock(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]error, 2)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = f.svc.CreateOrder(ctx, uint64(300+i), services.CreateOrderRequest{
				ShippingAddress: kathmandu(),
				PaymentMethod:   domain.PaymentCashOnDelivery,
				IsBuyNow:        true,
				ProductID:       ptr(productVariants),
				VariantID:       ptr(variantRed),
				Quantity:        ptr(2),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var successes, shortages int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInsufficientStock):
			shortages++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, shortages)
	assert.Equal(t, 1, f.store.OrderCount())
	assert.Equal(t, 1, f.variantQty(t, variantRed))
	v, _ := f.store.Variant(variantRed)
	assert.Equal(t, domain.StockLow, v.Status)
}

func TestOrderService_CancelOrder(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	f.store.PutCart(7,
		domain.CartItem{ProductID: productDiscounted, Quantity: 2},
		domain.CartItem{ProductID: productVariants, VariantID: ptr(variantRed), Quantity: 3},
	)
	res, err := f.svc.CreateOrder(ctx, 7, services.CreateOrderRequest{
		ShippingAddress: kathmandu(),
		PaymentMethod:   domain.PaymentCashOnDelivery,
	})
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	assert.Equal(t, 3, f.productQty(t, productDiscounted))
	assert.Equal(t, 0, f.variantQty(t, variantRed))

	_, err = f.svc.CancelOrder(ctx, res.Order.ID, 8)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.svc.CancelOrder(ctx, res.Order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Len(t, cancelled.Lines, 2)
	assert.Equal(t, 5, f.productQty(t, productDiscounted))
	assert.Equal(t, 3, f.variantQty(t, variantRed))
	v, _ := f.store.Variant(variantRed)
	assert.Equal(t, domain.StockLow, v.Status)
	f.expectEvent(t, "status:CANCELLED")

	_, err = f.svc.CancelOrder(ctx, res.Order.ID, 7)
	assert.ErrorIs(t, err, domain.ErrCannotCancel)
	assert.Equal(t, 5, f.productQty(t, productDiscounted))

}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	res, err := f.svc.CreateOrder(ctx, 7, buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	id := res.Order.ID

	same, err := f.svc.UpdateOrderStatus(ctx, id, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, same.Status)
	f.expectNoEvent(t)

	shipped, err := f.svc.UpdateOrderStatus(ctx, id, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, shipped.Status)
	f.expectEvent(t, "status:SHIPPED")

	_, err = f.svc.UpdateOrderStatus(ctx, id, domain.StatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	stored, _ := f.store.Order(id)
	assert.Equal(t, domain.StatusShipped, stored.Status)

	delivered, err := f.svc.UpdateOrderStatus(ctx, id, domain.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, delivered.PaymentStatus)
	f.expectEvent(t, "status:DELIVERED")

	returned, err := f.svc.UpdateOrderStatus(ctx, id, domain.StatusReturned)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, returned.Status)
	assert.Equal(t, 4, f.productQty(t, productDiscounted))
	f.expectEvent(t, "status:RETURNED")

	_, err = f.svc.UpdateOrderStatus(ctx, id, domain.OrderStatus("LOST"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestOrderService_UpdateOrderStatus_CancelRestoresStock(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	res, err := f.svc.CreateOrder(ctx, 7, buyNow(productDiscounted, 2, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	_, err = f.svc.UpdateOrderStatus(ctx, res.Order.ID, domain.StatusDelayed)
	require.NoError(t, err)
	f.expectEvent(t, "status:DELAYED")

	cancelled, err := f.svc.UpdateOrderStatus(ctx, res.Order.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.productQty(t, productDiscounted))
	f.expectEvent(t, "status:CANCELLED")
}

func TestOrderService_GetAndList(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		f.clock = baseTime.Add(time.Duration(i) * time.Minute)
		res, err := f.svc.CreateOrder(ctx, 7, buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery))
		require.NoError(t, err)
		f.expectEvent(t, "placed")
		ids = append(ids, res.Order.ID.String())
	}
	_, err := f.svc.CreateOrder(ctx, 8, buyNow(productLastUnit, 1, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	page, err := f.svc.ListOrdersByUser(ctx, 7, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID.String())

	page, err = f.svc.ListOrdersByUser(ctx, 7, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)

	page, err = f.svc.ListOrdersByVendor(ctx, 2, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.Limit)

	o, err := f.svc.GetOrderByID(ctx, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), o.UserID)

	_, err = f.svc.GetOrderByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderService_CreateOrder_Online(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()

	f.gateway.On("Initiate", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Return(&domain.RedirectDescriptor{Method: domain.PaymentESewa, URL: "https://pay.example/form"}, nil)

	res, err := f.svc.CreateOrder(ctx, 7, buyNow(productDiscounted, 2, domain.PaymentESewa))
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	require.NotNil(t, res.Redirect)
	assert.Equal(t, "https://pay.example/form", res.Redirect.URL)
	assert.Equal(t, domain.StatusPending, res.Order.Status)
	assert.Equal(t, domain.PaymentUnpaid, res.Order.PaymentStatus)
	require.NotNil(t, res.Order.TransactionID)
	initiated := f.gateway.Calls[0].Arguments.Get(1).(*domain.Order)
	assert.Equal(t, res.Order.ID, initiated.ID)
	assert.Equal(t, 5, f.productQty(t, productDiscounted))
}

func TestOrderService_CreateOrder_GatewayUnavailable(t *testing.T) {
	f := newFixture(t, services.Config{})
	f.gateway.On("Initiate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	res, err := f.svc.CreateOrder(context.Background(), 7, buyNow(productDiscounted, 1, domain.PaymentESewa))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	require.NotNil(t, res)
	assert.Nil(t, res.Redirect)

	stored, ok := f.store.Order(res.Order.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, stored.Status)
	f.expectEvent(t, "placed")
}

func pendingOnlineOrder(t *testing.T, f *fixture, userID, productID uint64, qty int) *domain.Order {
	t.Helper()
	f.gateway.On("Initiate", mock.Anything, mock.Anything).
		Return(&domain.RedirectDescriptor{Method: domain.PaymentESewa, URL: "https://pay.example/form"}, nil).Maybe()
	res, err := f.svc.CreateOrder(context.Background(), userID, buyNow(productID, qty, domain.PaymentESewa))
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	return res.Order
}

func TestOrderService_ReconcilePayment_Success(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()
	order := pendingOnlineOrder(t, f, 7, productDiscounted, 2)

	f.gateway.On("Verify", mock.Anything, "token-1", mock.Anything).Return(&domain.VerificationResult{
		Success:               true,
		TransactionID:         *order.TransactionID,
		ExternalTransactionID: "000AB12",
		Amount:                order.TotalPrice,
		ProviderStatus:        "COMPLETE",
	}, nil).Once()
	f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil).Once()

	confirmed, err := f.svc.ReconcilePayment(ctx, "token-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.PaymentPaid, confirmed.PaymentStatus)
	require.NotNil(t, confirmed.ExternalTransactionID)
	assert.Equal(t, "000AB12", *confirmed.ExternalTransactionID)
	assert.Equal(t, 3, f.productQty(t, productDiscounted))
	f.expectEvent(t, "status:CONFIRMED")

	again, err := f.svc.ReconcilePayment(ctx, "token-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, again.Status)
	assert.Equal(t, 3, f.productQty(t, productDiscounted))
	f.expectNoEvent(t)
	f.gateway.AssertNumberOfCalls(t, "Verify", 1)
	f.gateway.AssertExpectations(t)
}

func TestOrderService_ReconcilePayment_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		verifyErr   error
		result      *domain.VerificationResult
		wantErr     error
		wantStatus  domain.OrderStatus
		wantPayment domain.PaymentStatus
	}{
		{
			name:        "tampered signature",
			verifyErr:   domain.ErrSignatureMismatch,
			wantErr:     domain.ErrSignatureMismatch,
			wantStatus:  domain.StatusPending,
			wantPayment: domain.PaymentUnpaid,
		},
		{
			name:        "status lookup inconclusive",
			verifyErr:   domain.VerificationFailed("status PENDING", nil),
			wantErr:     domain.ErrPaymentVerificationFailed,
			wantStatus:  domain.StatusPending,
			wantPayment: domain.PaymentUnpaid,
		},
		{
			name:        "provider reports failure",
			result:      &domain.VerificationResult{Success: false, ProviderStatus: "CANCELED"},
			wantStatus:  domain.StatusCancelled,
			wantPayment: domain.PaymentUnpaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, services.Config{})
			order := pendingOnlineOrder(t, f, 7, productDiscounted, 1)
			if tt.result != nil {
				tt.result.TransactionID = *order.TransactionID
				f.gateway.On("Verify", mock.Anything, "tok", mock.Anything).Return(tt.result, nil)
				f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil)
			} else {
				f.gateway.On("Verify", mock.Anything, "tok", mock.Anything).Return(nil, tt.verifyErr)
			}

			got, err := f.svc.ReconcilePayment(context.Background(), "tok", order.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
			}

			stored, _ := f.store.Order(order.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, tt.wantPayment, stored.PaymentStatus)
			assert.Equal(t, 5, f.productQty(t, productDiscounted))
		})
	}
}

func TestOrderService_ReconcilePayment_StockGone(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()
	order := pendingOnlineOrder(t, f, 7, productLastUnit, 1)

	_, err := f.svc.CreateOrder(ctx, 8, buyNow(productLastUnit, 1, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	f.expectEvent(t, "placed")

	f.gateway.On("Verify", mock.Anything, "tok", mock.Anything).Return(&domain.VerificationResult{
		Success: true, TransactionID: *order.TransactionID, ExternalTransactionID: "REF9",
	}, nil)
	f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil)

	got, err := f.svc.ReconcilePayment(ctx, "tok", order.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, 0, f.productQty(t, productLastUnit))
	f.expectEvent(t, "status:CANCELLED")
}

func TestOrderService_ReconcilePayment_AfterCancel(t *testing.T) {
	tests := []struct {
		name        string
		cancel      func(f *fixture, o *domain.Order) error
		success     bool
		wantErr     error
		wantPayment domain.PaymentStatus
		wantMarked  bool
	}{
		{
			name: "customer cancelled then paid",
			cancel: func(f *fixture, o *domain.Order) error {
				_, err := f.svc.CancelOrder(context.Background(), o.ID, o.UserID)
				return err
			},
			success:     true,
			wantErr:     domain.ErrRefundRequired,
			wantPayment: domain.PaymentPaid,
			wantMarked:  true,
		},
		{
			name: "failure redirect then paid",
			cancel: func(f *fixture, o *domain.Order) error {
				_, err := f.svc.HandlePaymentCancel(context.Background(), o.ID)
				return err
			},
			success:     true,
			wantErr:     domain.ErrRefundRequired,
			wantPayment: domain.PaymentPaid,
			wantMarked:  true,
		},
		{
			name: "failure reported after cancel",
			cancel: func(f *fixture, o *domain.Order) error {
				_, err := f.svc.CancelOrder(context.Background(), o.ID, o.UserID)
				return err
			},
			wantPayment: domain.PaymentUnpaid,
			wantMarked:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, services.Config{})
			ctx := context.Background()
			order := pendingOnlineOrder(t, f, 7, productDiscounted, 2)
			require.NoError(t, tt.cancel(f, order))
			f.expectEvent(t, "status:CANCELLED")
			f.gateway.AssertNotCalled(t, "MarkReconciled", mock.Anything, mock.Anything)

			f.gateway.On("Verify", mock.Anything, "late", mock.Anything).Return(&domain.VerificationResult{
				Success:               tt.success,
				TransactionID:         *order.TransactionID,
				ExternalTransactionID: "REF-AFTER",
				Amount:                order.TotalPrice,
			}, nil).Once()
			f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil).Once()

			got, err := f.svc.ReconcilePayment(ctx, "late", order.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, got)
			assert.Equal(t, domain.StatusCancelled, got.Status)
			assert.Equal(t, tt.wantPayment, got.PaymentStatus)

			stored, _ := f.store.Order(order.ID)
			assert.Equal(t, domain.StatusCancelled, stored.Status)
			assert.Equal(t, tt.wantPayment, stored.PaymentStatus)
			if tt.success {
				require.NotNil(t, stored.ExternalTransactionID)
				assert.Equal(t, "REF-AFTER", *stored.ExternalTransactionID)
			}
			assert.Equal(t, 5, f.productQty(t, productDiscounted))
			f.expectNoEvent(t)
			f.gateway.AssertExpectations(t)

			// the gateway now reports the transaction as handled
			f.gateway.On("Verify", mock.Anything, "again", mock.Anything).Return(&domain.VerificationResult{
				AlreadyProcessed: true, TransactionID: *order.TransactionID,
			}, nil).Maybe()
			again, err := f.svc.ReconcilePayment(ctx, "again", order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPayment, again.PaymentStatus)
			assert.Equal(t, 5, f.productQty(t, productDiscounted))
		})
	}
}

func TestOrderService_ReconcilePayment_KeepsLaterCartItems(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()
	f.gateway.On("Initiate", mock.Anything, mock.Anything).
		Return(&domain.RedirectDescriptor{Method: domain.PaymentESewa, URL: "https://pay.example/form"}, nil)

	f.store.PutCart(7, domain.CartItem{ProductID: productDiscounted, Quantity: 2})
	res, err := f.svc.CreateOrder(ctx, 7, services.CreateOrderRequest{
		ShippingAddress: kathmandu(),
		PaymentMethod:   domain.PaymentESewa,
	})
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	order := res.Order
	assert.Equal(t, domain.SourceCart, order.Source)

	// added while the customer was on the payment page
	f.store.PutCart(7, domain.CartItem{ProductID: productVariants, VariantID: ptr(variantRed), Quantity: 1})

	f.gateway.On("Verify", mock.Anything, "tok", mock.Anything).Return(&domain.VerificationResult{
		Success: true, TransactionID: *order.TransactionID, ExternalTransactionID: "REF2",
	}, nil)
	f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil)

	got, err := f.svc.ReconcilePayment(ctx, "tok", order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	f.expectEvent(t, "status:CONFIRMED")

	cart, ok := f.store.Cart(7)
	require.True(t, ok)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, productVariants, cart.Items[0].ProductID)
	require.NotNil(t, cart.Items[0].VariantID)
	assert.Equal(t, variantRed, *cart.Items[0].VariantID)
	assert.Equal(t, 3, f.productQty(t, productDiscounted))
}

func TestOrderService_HandlePaymentCancel(t *testing.T) {
	f := newFixture(t, services.Config{})
	ctx := context.Background()
	order := pendingOnlineOrder(t, f, 7, productDiscounted, 1)

	got, err := f.svc.HandlePaymentCancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	f.expectEvent(t, "status:CANCELLED")

	got, err = f.svc.HandlePaymentCancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	f.expectNoEvent(t)

	cod, err := f.svc.CreateOrder(ctx, 7, buyNow(productDiscounted, 1, domain.PaymentCashOnDelivery))
	require.NoError(t, err)
	f.expectEvent(t, "placed")
	_, err = f.svc.HandlePaymentCancel(ctx, cod.Order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	f.gateway.AssertNotCalled(t, "MarkReconciled", mock.Anything, mock.Anything)
}

func TestOrderService_SoftReservation(t *testing.T) {
	f := newFixture(t, services.Config{
		Reservation:    services.ReservationSoft,
		ReservationTTL: 15 * time.Minute,
	})
	ctx := context.Background()
	order := pendingOnlineOrder(t, f, 7, productDiscounted, 2)
	assert.Equal(t, 3, f.productQty(t, productDiscounted))

	n, err := f.svc.ExpireStaleReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock = baseTime.Add(16 * time.Minute)
	n, err = f.svc.ExpireStaleReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, f.productQty(t, productDiscounted))
	f.expectEvent(t, "status:CANCELLED")

	// the customer finished paying after the reservation lapsed
	f.gateway.On("Verify", mock.Anything, "late", mock.Anything).Return(&domain.VerificationResult{
		Success: true, TransactionID: *order.TransactionID, ExternalTransactionID: "REF-LATE",
	}, nil).Once()
	f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil).Once()

	got, err := f.svc.ReconcilePayment(ctx, "late", order.ID)
	assert.ErrorIs(t, err, domain.ErrRefundRequired)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, 5, f.productQty(t, productDiscounted))
	f.expectNoEvent(t)
	f.gateway.AssertExpectations(t)
}

func TestOrderService_SoftReservation_Confirmed(t *testing.T) {
	f := newFixture(t, services.Config{Reservation: services.ReservationSoft})
	ctx := context.Background()
	order := pendingOnlineOrder(t, f, 7, productDiscounted, 2)

	f.gateway.On("Verify", mock.Anything, "tok", mock.Anything).Return(&domain.VerificationResult{
		Success: true, TransactionID: *order.TransactionID, ExternalTransactionID: "REF1",
	}, nil)
	f.gateway.On("MarkReconciled", mock.Anything, *order.TransactionID).Return(nil)

	got, err := f.svc.ReconcilePayment(ctx, "tok", order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	// stock was taken once at creation, not again at confirmation
	assert.Equal(t, 3, f.productQty(t, productDiscounted))
	f.expectEvent(t, "status:CONFIRMED")

	f.clock = baseTime.Add(time.Hour)
	n, err := f.svc.ExpireStaleReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
