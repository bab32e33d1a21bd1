package service_test

import (
	"fmt"

	"github.com/djdiptayan1/HRone/internal/domain"
)

func (s *IntegrationTestSuite) TestListProducts_Pagination() {
	for i := 0; i < 25; i++ {
		s.createProduct(fmt.Sprintf("Product %02d", i), float64(i), sizes(domain.Bucket{Size: "M", Quantity: 1}))
	}

	products, page, err := s.ProductService.List(s.Ctx, domain.ProductFilter{}, 10, 0)
	s.Require().NoError(err)
	s.Len(products, 10)
	s.Require().NotNil(page.Next)
	s.Equal("10", *page.Next)
	s.Nil(page.Previous)
	s.Equal(10, page.Limit)

	products, page, err = s.ProductService.List(s.Ctx, domain.ProductFilter{}, 10, 20)
	s.Require().NoError(err)
	s.Len(products, 5)
	s.Nil(page.Next)
	s.Require().NotNil(page.Previous)
	s.Equal("10", *page.Previous)
}

func (s *IntegrationTestSuite) TestListProducts_OrderedByID() {
	first := s.createProduct("B", 1, sizes())
	second := s.createProduct("A", 1, sizes())

	products, _, err := s.ProductService.List(s.Ctx, domain.ProductFilter{}, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(products, 2)
	s.Equal(first, products[0].ID)
	s.Equal(second, products[1].ID)
}

func (s *IntegrationTestSuite) TestListProducts_NameIsLiteralAndCaseInsensitive() {
	s.createProduct("100% Cotton Tee", 20, sizes())
	s.createProduct("Cotton Socks", 5, sizes())
	s.createProduct("snake_case mug", 9, sizes())

	products, _, err := s.ProductService.List(s.Ctx, domain.ProductFilter{Name: "%"}, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal("100% Cotton Tee", products[0].Name)

	products, _, err = s.ProductService.List(s.Ctx, domain.ProductFilter{Name: "_"}, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal("snake_case mug", products[0].Name)

	products, page, err := s.ProductService.List(s.Ctx, domain.ProductFilter{Name: "cOTTON"}, 10, 0)
	s.Require().NoError(err)
	s.Len(products, 2)
	s.False(page.HasNext())
}

func (s *IntegrationTestSuite) TestListProducts_SizeFilter() {
	xl := s.createProduct("Parka", 200, sizes(
		domain.Bucket{Size: "M", Quantity: 0},
		domain.Bucket{Size: "XL", Quantity: 1},
	))
	s.createProduct("Vest", 50, sizes(domain.Bucket{Size: "M", Quantity: 4}))
	s.createProduct("Poster", 8, domain.FlatStock(10))

	products, _, err := s.ProductService.List(s.Ctx, domain.ProductFilter{Size: "XL"}, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal(xl, products[0].ID)

	products, _, err = s.ProductService.List(s.Ctx, domain.ProductFilter{Size: "M", Name: "vest"}, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(products, 1)
	s.Equal("Vest", products[0].Name)

	products, _, err = s.ProductService.List(s.Ctx, domain.ProductFilter{Size: "xl"}, 10, 0)
	s.Require().NoError(err)
	s.Empty(products)
}

func (s *IntegrationTestSuite) TestCreateProduct_Validation() {
	_, err := s.ProductService.Create(s.Ctx, domain.ProductInput{Name: "", Price: 1})
	s.requireKind(err, domain.KindInvalidArgument)

	_, err = s.ProductService.Create(s.Ctx, domain.ProductInput{Name: "Bad", Price: -1})
	s.requireKind(err, domain.KindInvalidArgument)

	_, err = s.ProductService.Create(s.Ctx, domain.ProductInput{
		Name:  "Bad",
		Price: 1,
		Stock: sizes(domain.Bucket{Size: "M", Quantity: -1}),
	})
	s.requireKind(err, domain.KindInvalidArgument)

	s.Zero(s.countRows(`SELECT COUNT(*) FROM products`))
}

func (s *IntegrationTestSuite) TestReplaceProduct() {
	id := s.createProduct("Old", 10, domain.FlatStock(3))

	product, err := s.ProductService.Replace(s.Ctx, id, domain.ProductInput{
		Name:  "New",
		Price: 12.5,
		Stock: sizes(domain.Bucket{Size: "S", Quantity: 1}, domain.Bucket{Size: "M", Quantity: 2}),
	})
	s.Require().NoError(err)
	s.Equal(id, product.ID)
	s.Equal("New", product.Name)

	stored, err := s.ProductService.FindByID(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal(12.5, stored.Price)
	s.False(stored.Stock.IsFlat())
	s.Equal([]domain.Bucket{{Size: "S", Quantity: 1}, {Size: "M", Quantity: 2}}, stored.Stock.Buckets())

	s.Equal(2, s.countRows(`SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1 AND event_type = 'ProductUpserted'`, id))

	_, err = s.ProductService.Replace(s.Ctx, domain.NewID(), domain.ProductInput{Name: "X"})
	s.requireKind(err, domain.KindNotFound)
}

func (s *IntegrationTestSuite) TestDeleteProduct() {
	id := s.createProduct("Gone", 1, sizes(domain.Bucket{Size: "M", Quantity: 1}))

	deleted, err := s.ProductService.Delete(s.Ctx, id)
	s.Require().NoError(err)
	s.True(deleted)
	s.Zero(s.countRows(`SELECT COUNT(*) FROM product_sizes WHERE product_id = $1`, id))

	deleted, err = s.ProductService.Delete(s.Ctx, id)
	s.Require().NoError(err)
	s.False(deleted)

	_, err = s.ProductService.Delete(s.Ctx, "nope")
	s.requireKind(err, domain.KindInvalidArgument)

	_, err = s.ProductService.FindByID(s.Ctx, id)
	s.requireKind(err, domain.KindNotFound)
}

func (s *IntegrationTestSuite) TestCachedProductService() {
	id := s.createProduct("Cached", 7, sizes(domain.Bucket{Size: "M", Quantity: 2}))
	key := "product:" + id

	product, err := s.CachedProducts.FindByID(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal("Cached", product.Name)

	exists, err := s.RedisClient.Exists(s.Ctx, key).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	cached, ok := s.Cache.Get(s.Ctx, id)
	s.Require().True(ok)
	s.Equal(product.Stock.Buckets(), cached.Stock.Buckets())

	_, err = s.CachedProducts.Replace(s.Ctx, id, domain.ProductInput{Name: "Renamed", Price: 8, Stock: domain.FlatStock(1)})
	s.Require().NoError(err)

	exists, err = s.RedisClient.Exists(s.Ctx, key).Result()
	s.Require().NoError(err)
	s.Zero(exists)

	product, err = s.CachedProducts.FindByID(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal("Renamed", product.Name)
	s.True(product.Stock.IsFlat())

	deleted, err := s.CachedProducts.Delete(s.Ctx, id)
	s.Require().NoError(err)
	s.True(deleted)

	_, ok = s.Cache.Get(s.Ctx, id)
	s.False(ok)

	_, err = s.CachedProducts.FindByID(s.Ctx, id)
	s.requireKind(err, domain.KindNotFound)
}
