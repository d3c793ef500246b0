package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryBrokerRepo struct {
	brokers []Broker
	nextID  int64
}

func newMemoryBrokerRepo() *memoryBrokerRepo {
	return &memoryBrokerRepo{nextID: 1}
}

func (m *memoryBrokerRepo) Create(_ context.Context, b Broker) (Broker, error) {
	b.ID = m.nextID
	m.nextID++
	// Newest first, matching the repository's ordering.
	m.brokers = append([]Broker{b}, m.brokers...)
	return b, nil
}

func (m *memoryBrokerRepo) List(_ context.Context, start, pageSize int) ([]Broker, error) {
	if start >= len(m.brokers) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(m.brokers) {
		end = len(m.brokers)
	}
	return m.brokers[start:end], nil
}

func (m *memoryBrokerRepo) Count(context.Context) (int, error) {
	return len(m.brokers), nil
}

func TestCreateBroker(t *testing.T) {
	repo := newMemoryBrokerRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		BrokerName:    "Northern Haulage",
		ItemName:      "Gravel 20mm",
		ItemRate:      42.5,
		VehicleNumber: "KA-01-AB-1234",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.NotEmpty(t, created.Number)
	require.Equal(t, DocStatusSubmitted, created.DocStatus)
	require.False(t, created.CreatedAt.IsZero())

	_, err = svc.Create(context.Background(), CreateInput{ItemName: "Gravel 20mm"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestListBrokersPagination(t *testing.T) {
	repo := newMemoryBrokerRepo()
	svc := NewService(repo, nil)

	for i := 0; i < 25; i++ {
		_, err := svc.Create(context.Background(), CreateInput{BrokerName: "Broker", ItemName: "Item"})
		require.NoError(t, err)
	}

	page1, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page1.Data, 10)
	require.Equal(t, 1, page1.Pagination.Page)
	require.Equal(t, 25, page1.Pagination.TotalRecords)
	require.Equal(t, 3, page1.Pagination.TotalPages)

	page3, err := svc.List(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, page3.Data, 5)

	empty, err := svc.List(context.Background(), 9, 10)
	require.NoError(t, err)
	require.NotNil(t, empty.Data)
	require.Empty(t, empty.Data)
	require.Equal(t, 25, empty.Pagination.TotalRecords)

	// Out-of-range inputs fall back to defaults.
	defaulted, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, defaulted.Data, 10)
	require.Equal(t, 1, defaulted.Pagination.Page)
}
