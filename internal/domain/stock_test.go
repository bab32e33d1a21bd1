package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestPlanDeduction_DrainsBucketsInStoredOrder(t *testing.T) {
	stock := domain.BucketedStock([]domain.Bucket{
		{Size: "S", Quantity: 2},
		{Size: "M", Quantity: 0},
		{Size: "L", Quantity: 5},
	})

	plan, ok := stock.PlanDeduction(4)
	require.True(t, ok)
	require.Equal(t, []domain.Deduction{
		{Position: 0, Size: "S", Quantity: 2},
		{Position: 2, Size: "L", Quantity: 2},
	}, plan)

	left := stock.Apply(plan)
	require.Equal(t, 3, left.Available())
	require.Equal(t, []domain.Bucket{
		{Size: "S", Quantity: 0},
		{Size: "M", Quantity: 0},
		{Size: "L", Quantity: 3},
	}, left.Buckets())

	require.Equal(t, 7, stock.Available(), "planning must not mutate the original shape")
}

func TestPlanDeduction_ShirtScenario(t *testing.T) {
	stock := domain.BucketedStock([]domain.Bucket{{Size: "S", Quantity: 2}, {Size: "M", Quantity: 0}})

	plan, ok := stock.PlanDeduction(2)
	require.True(t, ok)

	left := stock.Apply(plan)
	require.Equal(t, []domain.Bucket{{Size: "S", Quantity: 0}, {Size: "M", Quantity: 0}}, left.Buckets())

	_, ok = left.PlanDeduction(2)
	require.False(t, ok)
}

func TestPlanDeduction_Flat(t *testing.T) {
	stock := domain.FlatStock(5)

	plan, ok := stock.PlanDeduction(3)
	require.True(t, ok)
	require.Equal(t, []domain.Deduction{{Position: 0, Quantity: 3}}, plan)
	require.Equal(t, 2, stock.Apply(plan).Available())
	require.Nil(t, stock.Buckets())

	_, ok = stock.PlanDeduction(6)
	require.False(t, ok)
}

func TestPlanDeduction_Insufficient(t *testing.T) {
	stock := domain.BucketedStock([]domain.Bucket{{Size: "S", Quantity: 1}})

	plan, ok := stock.PlanDeduction(2)
	require.False(t, ok)
	require.Nil(t, plan)
}

func TestPlanDeduction_EmptyBuckets(t *testing.T) {
	var stock domain.StockShape

	require.Equal(t, 0, stock.Available())
	_, ok := stock.PlanDeduction(1)
	require.False(t, ok)

	plan, ok := stock.PlanDeduction(0)
	require.True(t, ok)
	require.Empty(t, plan)
}

func TestStockShape_JSON(t *testing.T) {
	flat, err := json.Marshal(domain.FlatStock(4))
	require.NoError(t, err)
	require.JSONEq(t, `{"quantity":4}`, string(flat))

	empty, err := json.Marshal(domain.BucketedStock(nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"sizes":[]}`, string(empty))

	var decoded domain.StockShape
	require.NoError(t, json.Unmarshal([]byte(`{"sizes":[{"size":"S","quantity":1}]}`), &decoded))
	require.False(t, decoded.IsFlat())
	require.Equal(t, 1, decoded.Available())

	require.Error(t, json.Unmarshal([]byte(`{"sizes":[],"quantity":1}`), &decoded))
}
