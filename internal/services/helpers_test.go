package services_test

import (
	"testing"
	"time"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/mocks"
	"order-fulfillment/internal/repository/memory"
	"order-fulfillment/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

const (
	productDiscounted uint64 = 1 // Kathmandu vendor, 1000 less 10%, qty 5
	productLastUnit   uint64 = 2 // Lalitpur vendor, 500, qty 1
	productVariants   uint64 = 3 // Pokhara vendor, variants only
	variantRed        uint64 = 31
	productNoDistrict uint64 = 4
)

type fixture struct {
	store    *memory.Store
	svc      *services.OrderService
	notifier *mocks.MockNotifier
	gateway  *mocks.MockPaymentGateway
	events   chan string
	clock    time.Time
}

func newFixture(t *testing.T, cfg services.Config) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		notifier: &mocks.MockNotifier{},
		gateway:  &mocks.MockPaymentGateway{},
		events:   make(chan string, 64),
		clock:    baseTime,
	}
	seedCatalog(f.store)

	f.notifier.On("NotifyOrderPlaced", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		f.events <- "placed"
	})
	f.notifier.On("NotifyStatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		o := args.Get(1).(*domain.Order)
		f.events <- "status:" + string(o.Status)
	})

	log := zap.NewNop()
	calc := services.NewCalculator(services.DefaultShippingRates(), services.DefaultMetroTable(), log)
	f.svc = services.NewOrderService(
		f.store.Repository(),
		calc,
		map[domain.PaymentMethod]services.PaymentGateway{domain.PaymentESewa: f.gateway},
		f.notifier,
		cfg,
		log,
	)
	f.svc.SetClock(func() time.Time { return f.clock })
	return f
}

func seedCatalog(s *memory.Store) {
	s.PutVendor(domain.Vendor{ID: 1, Name: "Asan Traders", District: "Kathmandu"})
	s.PutVendor(domain.Vendor{ID: 2, Name: "Patan Crafts", District: "Lalitpur"})
	s.PutVendor(domain.Vendor{ID: 3, Name: "Lakeside Goods", District: "Kaski"})
	s.PutVendor(domain.Vendor{ID: 4, Name: "Nowhere Ltd"})

	s.PutProduct(domain.Product{
		ID: productDiscounted, VendorID: 1, Name: "Tea set",
		BasePrice: decimal.NewFromInt(1000), Discount: decimal.NewFromInt(10),
		DiscountType: domain.DiscountPercentage, Quantity: 5,
	})
	s.PutProduct(domain.Product{
		ID: productLastUnit, VendorID: 2, Name: "Singing bowl",
		BasePrice: decimal.NewFromInt(500), Quantity: 1,
	})
	s.PutProduct(domain.Product{
		ID: productVariants, VendorID: 3, Name: "Pashmina",
		BasePrice: decimal.NewFromInt(900), HasVariants: true,
	})
	s.PutVariant(domain.Variant{
		ID: variantRed, ProductID: productVariants, Name: "Red",
		BasePrice: decimal.NewFromInt(750), Quantity: 3,
	})
	s.PutProduct(domain.Product{
		ID: productNoDistrict, VendorID: 4, Name: "Mystery box",
		BasePrice: decimal.NewFromInt(100), Quantity: 10,
	})
}

func kathmandu() domain.AddressSnapshot {
	return domain.AddressSnapshot{
		Province:   "Bagmati",
		District:   "Kathmandu",
		City:       "Kathmandu",
		StreetLine: "Thamel Marg 12",
	}
}

func ptr[T any](v T) *T { return &v }

func buyNow(productID uint64, qty int, method domain.PaymentMethod) services.CreateOrderRequest {
	return services.CreateOrderRequest{
		ShippingAddress: kathmandu(),
		PaymentMethod:   method,
		IsBuyNow:        true,
		ProductID:       ptr(productID),
		Quantity:        ptr(qty),
	}
}

func (f *fixture) expectEvent(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-f.events:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for notification %q", want)
	}
}

func (f *fixture) expectNoEvent(t *testing.T) {
	t.Helper()
	select {
	case got := <-f.events:
		t.Fatalf("unexpected notification %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func (f *fixture) productQty(t *testing.T, id uint64) int {
	t.Helper()
	p, ok := f.store.Product(id)
	if !ok {
		t.Fatalf("product %d missing", id)
	}
	return p.Quantity
}

func (f *fixture) variantQty(t *testing.T, id uint64) int {
	t.Helper()
	v, ok := f.store.Variant(id)
	if !ok {
		t.Fatalf("variant %d missing", id)
	}
	return v.Quantity
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "expected %s, got %s", want, got)
}
