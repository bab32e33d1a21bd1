package service_test

import (
	"sync"

	"github.com/djdiptayan1/HRone/internal/domain"
)

func sizes(buckets ...domain.Bucket) domain.StockShape {
	return domain.BucketedStock(buckets)
}

func (s *IntegrationTestSuite) TestPlaceOrder_DrainsFirstBucketFirst() {
	id := s.createProduct("Hoodie", 40, sizes(
		domain.Bucket{Size: "S", Quantity: 2},
		domain.Bucket{Size: "M", Quantity: 3},
		domain.Bucket{Size: "L", Quantity: 1},
	))

	orderID, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: id, Qty: 4}})
	s.Require().NoError(err)
	s.Require().NotEmpty(orderID)

	s.Equal([]domain.Bucket{
		{Size: "S", Quantity: 0},
		{Size: "M", Quantity: 1},
		{Size: "L", Quantity: 1},
	}, s.stockOf(id).Buckets())
}

func (s *IntegrationTestSuite) TestPlaceOrder_ShirtSoldOut() {
	id := s.createProduct("Shirt", 25, sizes(
		domain.Bucket{Size: "S", Quantity: 2},
		domain.Bucket{Size: "M", Quantity: 0},
	))
	items := []domain.OrderItem{{ProductID: id, Qty: 2}}

	_, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", items)
	s.Require().NoError(err)

	s.Equal([]domain.Bucket{
		{Size: "S", Quantity: 0},
		{Size: "M", Quantity: 0},
	}, s.stockOf(id).Buckets())

	_, err = s.OrderService.PlaceOrder(s.Ctx, "user-1", items)
	domainErr := s.requireKind(err, domain.KindInsufficientStock)
	s.Equal("Insufficient stock for Shirt. Available: 0, Requested: 2", domainErr.Message)
	s.Equal(0, domainErr.Available)
	s.Equal(2, domainErr.Requested)
}

func (s *IntegrationTestSuite) TestPlaceOrder_MissingProductFailsWholeOrder() {
	id := s.createProduct("Cap", 10, sizes(domain.Bucket{Size: "One", Quantity: 5}))
	missing := domain.NewID()

	_, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{
		{ProductID: id, Qty: 2},
		{ProductID: missing, Qty: 1},
	})
	domainErr := s.requireKind(err, domain.KindNotFound)
	s.Equal("Product with ID "+missing+" not found", domainErr.Message)

	s.Equal(5, s.stockOf(id).Available())
	s.Zero(s.countRows(`SELECT COUNT(*) FROM orders`))
	s.Zero(s.countRows(`SELECT COUNT(*) FROM outbox WHERE event_type = 'OrderPlaced'`))
}

func (s *IntegrationTestSuite) TestPlaceOrder_InvalidItems() {
	id := s.createProduct("Sock", 3, sizes(domain.Bucket{Size: "M", Quantity: 5}))

	_, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: "not-an-id", Qty: 1}})
	s.requireKind(err, domain.KindInvalidArgument)

	_, err = s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: id, Qty: 0}})
	s.requireKind(err, domain.KindInvalidArgument)

	s.Equal(5, s.stockOf(id).Available())
}

func (s *IntegrationTestSuite) TestPlaceOrder_FlatStock() {
	id := s.createProduct("Mug", 12, domain.FlatStock(3))

	_, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: id, Qty: 2}})
	s.Require().NoError(err)

	stock := s.stockOf(id)
	s.True(stock.IsFlat())
	s.Equal(1, stock.FlatQuantity())

	_, err = s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: id, Qty: 2}})
	s.requireKind(err, domain.KindInsufficientStock)
}

func (s *IntegrationTestSuite) TestPlaceOrder_ZeroItems() {
	orderID, err := s.OrderService.PlaceOrder(s.Ctx, "user-empty", nil)
	s.Require().NoError(err)
	s.Require().NotEmpty(orderID)

	summaries, _, err := s.OrderService.ListOrdersForUser(s.Ctx, "user-empty", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(orderID, summaries[0].ID)
	s.Empty(summaries[0].Items)
	s.Zero(summaries[0].Total)
}

func (s *IntegrationTestSuite) TestPlaceOrder_DuplicateLinesRecheckedInTransaction() {
	id := s.createProduct("Scarf", 15, sizes(domain.Bucket{Size: "M", Quantity: 3}))

	_, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{
		{ProductID: id, Qty: 2},
		{ProductID: id, Qty: 2},
	})
	domainErr := s.requireKind(err, domain.KindInsufficientStock)
	s.Equal(1, domainErr.Available)

	s.Equal(3, s.stockOf(id).Available())
	s.Zero(s.countRows(`SELECT COUNT(*) FROM orders`))
}

func (s *IntegrationTestSuite) TestPlaceOrder_StagesOutboxEvent() {
	id := s.createProduct("Belt", 20, sizes(domain.Bucket{Size: "M", Quantity: 2}))

	orderID, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: id, Qty: 1}})
	s.Require().NoError(err)

	s.Equal(1, s.countRows(
		`SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1 AND event_type = 'OrderPlaced' AND topic = 'order_events'`,
		orderID,
	))
	s.Equal(1, s.countRows(`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, orderID))
}

func (s *IntegrationTestSuite) TestPlaceOrder_ConcurrentOverSubscription() {
	id := s.createProduct("Jacket", 120, sizes(
		domain.Bucket{Size: "M", Quantity: 3},
		domain.Bucket{Size: "L", Quantity: 2},
	))

	const attempts = 2

	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.OrderService.PlaceOrder(s.Ctx, "user-race", []domain.OrderItem{{ProductID: id, Qty: 3}})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		kind := domain.KindOf(err)
		s.Contains([]domain.ErrorKind{domain.KindInsufficientStock, domain.KindConflict}, kind, err.Error())
	}

	s.Equal(1, succeeded)
	s.Equal(2, s.stockOf(id).Available())
}

func (s *IntegrationTestSuite) TestPlaceOrder_ConcurrentUnitsNeverOversell() {
	id := s.createProduct("Tee", 18, sizes(
		domain.Bucket{Size: "S", Quantity: 4},
		domain.Bucket{Size: "M", Quantity: 6},
	))

	const buyers = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.OrderService.PlaceOrder(s.Ctx, "user-race", []domain.OrderItem{{ProductID: id, Qty: 1}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	s.Equal(10, succeeded)
	for _, b := range s.stockOf(id).Buckets() {
		s.Zero(b.Quantity)
	}
	s.Equal(10, s.countRows(`SELECT COUNT(*) FROM orders WHERE user_id = 'user-race'`))
}

func (s *IntegrationTestSuite) TestListOrdersForUser_DropsMissingProducts() {
	kept := s.createProduct("Boots", 10, sizes(domain.Bucket{Size: "42", Quantity: 5}))
	removed := s.createProduct("Laces", 5, sizes(domain.Bucket{Size: "One", Quantity: 5}))

	orderID, err := s.OrderService.PlaceOrder(s.Ctx, "user-7", []domain.OrderItem{
		{ProductID: kept, Qty: 2},
		{ProductID: removed, Qty: 1},
	})
	s.Require().NoError(err)

	deleted, err := s.ProductService.Delete(s.Ctx, removed)
	s.Require().NoError(err)
	s.Require().True(deleted)

	summaries, page, err := s.OrderService.ListOrdersForUser(s.Ctx, "user-7", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)

	s.Equal(orderID, summaries[0].ID)
	s.Equal([]domain.OrderLineSummary{
		{ProductDetails: domain.ProductDetails{ID: kept, Name: "Boots"}, Qty: 2},
	}, summaries[0].Items)
	s.InDelta(20.0, summaries[0].Total, 1e-9)
	s.False(page.HasNext())
	s.False(page.HasPrevious())
}

func (s *IntegrationTestSuite) TestListOrdersForUser_Pages() {
	id := s.createProduct("Pin", 1, sizes(domain.Bucket{Size: "One", Quantity: 100}))

	for i := 0; i < 3; i++ {
		_, err := s.OrderService.PlaceOrder(s.Ctx, "user-pages", []domain.OrderItem{{ProductID: id, Qty: 1}})
		s.Require().NoError(err)
	}
	_, err := s.OrderService.PlaceOrder(s.Ctx, "someone-else", []domain.OrderItem{{ProductID: id, Qty: 1}})
	s.Require().NoError(err)

	summaries, page, err := s.OrderService.ListOrdersForUser(s.Ctx, "user-pages", 2, 0)
	s.Require().NoError(err)
	s.Len(summaries, 2)
	s.Require().NotNil(page.Next)
	s.Equal("2", *page.Next)

	summaries, page, err = s.OrderService.ListOrdersForUser(s.Ctx, "user-pages", 2, 2)
	s.Require().NoError(err)
	s.Len(summaries, 1)
	s.Nil(page.Next)
	s.Require().NotNil(page.Previous)
	s.Equal("0", *page.Previous)

	_, _, err = s.OrderService.ListOrdersForUser(s.Ctx, "user-pages", 0, 0)
	s.requireKind(err, domain.KindInvalidArgument)
}

func (s *IntegrationTestSuite) TestReplaceOrder() {
	first := s.createProduct("Ring", 50, sizes(domain.Bucket{Size: "7", Quantity: 1}))
	second := s.createProduct("Chain", 30, sizes(domain.Bucket{Size: "One", Quantity: 1}))

	orderID, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: first, Qty: 1}})
	s.Require().NoError(err)

	err = s.OrderService.ReplaceOrder(s.Ctx, orderID, "user-2", []domain.OrderItem{{ProductID: second, Qty: 4}})
	s.Require().NoError(err)

	summaries, _, err := s.OrderService.ListOrdersForUser(s.Ctx, "user-2", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(second, summaries[0].Items[0].ProductDetails.ID)
	s.Equal(4, summaries[0].Items[0].Qty)

	// replacing does not touch stock
	s.Equal(1, s.stockOf(second).Available())

	err = s.OrderService.ReplaceOrder(s.Ctx, domain.NewID(), "user-2", nil)
	domainErr := s.requireKind(err, domain.KindNotFound)
	s.Equal("Order not found", domainErr.Message)
}

func (s *IntegrationTestSuite) TestDeleteOrder() {
	id := s.createProduct("Watch", 99, sizes(domain.Bucket{Size: "One", Quantity: 1}))

	orderID, err := s.OrderService.PlaceOrder(s.Ctx, "user-1", []domain.OrderItem{{ProductID: id, Qty: 1}})
	s.Require().NoError(err)

	s.Require().NoError(s.OrderService.DeleteOrder(s.Ctx, orderID))
	s.Zero(s.countRows(`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, orderID))
	s.Equal(1, s.countRows(`SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1 AND event_type = 'OrderDeleted'`, orderID))

	err = s.OrderService.DeleteOrder(s.Ctx, orderID)
	s.requireKind(err, domain.KindNotFound)

	err = s.OrderService.DeleteOrder(s.Ctx, "garbage")
	s.requireKind(err, domain.KindNotFound)
}
