package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListQueryNormalized(t *testing.T) {
	tests := []struct {
		name      string
		in        ListQuery
		wantPage  int
		wantLimit int
	}{
		{"defaults", ListQuery{}, 1, 20},
		{"clamps limit", ListQuery{Page: 2, Limit: 200}, 2, 100},
		{"negative values", ListQuery{Page: -3, Limit: -1}, 1, 20},
		{"keeps valid values", ListQuery{Page: 4, Limit: 5}, 4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalized()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestNewPage(t *testing.T) {
	lists := []Bucketlist{{ID: 3}, {ID: 4}}

	t.Run("middle page has both links", func(t *testing.T) {
		q := ListQuery{Page: 2, Limit: 2, BaseURL: "http://localhost:8080/"}.Normalized()
		p := NewPage(q, lists, 5)

		assert.Equal(t, 3, p.Pages)
		assert.True(t, p.HasNext)
		assert.True(t, p.HasPrevious)
		require.NotNil(t, p.NextPage)
		require.NotNil(t, p.PreviousPage)
		assert.Equal(t, "http://localhost:8080/bucketlists?limit=2&page=3", *p.NextPage)
		assert.Equal(t, "http://localhost:8080/bucketlists?limit=2&page=1", *p.PreviousPage)
		assert.Empty(t, p.Message)
	})

	t.Run("search links carry q", func(t *testing.T) {
		q := ListQuery{Page: 1, Limit: 1, Search: "bucket 1", BaseURL: "http://h"}.Normalized()
		p := NewPage(q, lists[:1], 2)

		require.NotNil(t, p.NextPage)
		assert.Equal(t, "http://h/bucketlists?q=bucket+1&page=2", *p.NextPage)
		assert.Nil(t, p.PreviousPage)
	})

	t.Run("single page has no links", func(t *testing.T) {
		p := NewPage(ListQuery{}.Normalized(), lists, 2)
		assert.Equal(t, 1, p.Pages)
		assert.False(t, p.HasNext)
		assert.False(t, p.HasPrevious)
		assert.Nil(t, p.NextPage)
		assert.Nil(t, p.PreviousPage)
	})

	t.Run("past the last page is empty but successful", func(t *testing.T) {
		q := ListQuery{Page: 9, Limit: 20}.Normalized()
		p := NewPage(q, nil, 2)

		assert.NotNil(t, p.Bucketlists)
		assert.Empty(t, p.Bucketlists)
		assert.False(t, p.HasNext)
		assert.True(t, p.HasPrevious)
		assert.Equal(t, MsgNoBucketlists, p.Message)
	})

	t.Run("no bucketlists at all", func(t *testing.T) {
		p := NewPage(ListQuery{}.Normalized(), nil, 0)
		assert.Equal(t, 0, p.Pages)
		assert.False(t, p.HasNext)
		assert.Equal(t, MsgNoBucketlists, p.Message)
	})
}

func TestListQueryOffset(t *testing.T) {
	tests := []struct {
		name string
		q    ListQuery
		want int
	}{
		{"first page", ListQuery{Page: 1, Limit: 20}, 0},
		{"third page", ListQuery{Page: 3, Limit: 10}, 20},
		{"unnormalized", ListQuery{}, 0},
		{"largest page saturates", ListQuery{Page: math.MaxInt, Limit: MaxLimit}, math.MaxInt},
		{"overflow boundary saturates", ListQuery{Page: math.MaxInt/MaxLimit + 2, Limit: MaxLimit}, math.MaxInt},
		{"last exact page", ListQuery{Page: math.MaxInt/MaxLimit + 1, Limit: MaxLimit}, math.MaxInt / MaxLimit * MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.q.Offset()
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
		})
	}

	t.Run("page past an overflowing offset is empty", func(t *testing.T) {
		q := ListQuery{Page: math.MaxInt, Limit: 50}.Normalized()
		p := NewPage(q, nil, 3)
		assert.False(t, p.HasNext)
		assert.Nil(t, p.NextPage)
		require.NotNil(t, p.PreviousPage)
		assert.Equal(t, MsgNoBucketlists, p.Message)
	})
}
