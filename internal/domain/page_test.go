package domain_test

import (
	"testing"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	cases := []struct {
		name     string
		limit    int
		offset   int
		total    int64
		next     *string
		previous *string
	}{
		{name: "first page", limit: 10, offset: 0, total: 25, next: ptr("10")},
		{name: "middle page", limit: 10, offset: 10, total: 25, next: ptr("20"), previous: ptr("0")},
		{name: "last page", limit: 10, offset: 20, total: 25, previous: ptr("10")},
		{name: "exact fit", limit: 10, offset: 0, total: 10},
		{name: "empty", limit: 10, offset: 0, total: 0},
		{name: "past the end", limit: 10, offset: 40, total: 25, previous: ptr("30")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := domain.NewPage(tc.limit, tc.offset, tc.total)

			require.Equal(t, tc.limit, page.Limit)
			require.Equal(t, tc.next, page.Next)
			require.Equal(t, tc.previous, page.Previous)
			require.Equal(t, tc.next != nil, page.HasNext())
			require.Equal(t, tc.previous != nil, page.HasPrevious())
		})
	}
}

func TestValidatePaging(t *testing.T) {
	require.NoError(t, domain.ValidatePaging(10, 0))
	require.NoError(t, domain.ValidatePaging(domain.MaxLimit, 500))

	for _, bad := range [][2]int{{0, 0}, {-1, 0}, {domain.MaxLimit + 1, 0}, {10, -1}} {
		err := domain.ValidatePaging(bad[0], bad[1])
		require.Error(t, err)
		require.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
	}
}

func ptr(s string) *string {
	return &s
}
