package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/cartage-erp/cartage-erp/internal/quotation"
)

type stubConverter struct {
	converted []string
	errs      map[string]error
}

func (s *stubConverter) ConvertByNumber(_ context.Context, number string) error {
	if err := s.errs[number]; err != nil {
		return err
	}
	s.converted = append(s.converted, number)
	return nil
}

type stubLister struct {
	numbers []string
	err     error
}

func (s stubLister) ListUnconverted(context.Context) ([]string, error) {
	return s.numbers, s.err
}

func TestHandleConversionRetry(t *testing.T) {
	converter := &stubConverter{errs: map[string]error{}}
	h := NewConversionHandlers(converter, stubLister{}, nil)

	task, err := NewConversionRetryTask(ConversionRetryPayload{QuotationNumber: "SQ-1"})
	require.NoError(t, err)
	require.NoError(t, h.HandleConversionRetry(context.Background(), task))
	require.Equal(t, []string{"SQ-1"}, converter.converted)
}

func TestHandleConversionRetrySkipsBadPayload(t *testing.T) {
	h := NewConversionHandlers(&stubConverter{}, stubLister{}, nil)

	bad := asynq.NewTask(TaskConversionRetry, []byte("not json"))
	require.ErrorIs(t, h.HandleConversionRetry(context.Background(), bad), asynq.SkipRetry)

	empty, err := NewConversionRetryTask(ConversionRetryPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, h.HandleConversionRetry(context.Background(), empty), asynq.SkipRetry)
}

func TestHandleConversionRetryMissingQuotation(t *testing.T) {
	converter := &stubConverter{errs: map[string]error{"SQ-GONE": quotation.ErrNotFound}}
	h := NewConversionHandlers(converter, stubLister{}, nil)

	task, err := NewConversionRetryTask(ConversionRetryPayload{QuotationNumber: "SQ-GONE"})
	require.NoError(t, err)
	require.ErrorIs(t, h.HandleConversionRetry(context.Background(), task), asynq.SkipRetry)
}

func TestHandleConversionRetryPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	converter := &stubConverter{errs: map[string]error{"SQ-1": boom}}
	h := NewConversionHandlers(converter, stubLister{}, nil)

	task, err := NewConversionRetryTask(ConversionRetryPayload{QuotationNumber: "SQ-1"})
	require.NoError(t, err)
	require.ErrorIs(t, h.HandleConversionRetry(context.Background(), task), boom)
}

func TestHandleConversionReconcile(t *testing.T) {
	converter := &stubConverter{errs: map[string]error{"SQ-2": errors.New("still broken")}}
	h := NewConversionHandlers(converter, stubLister{numbers: []string{"SQ-1", "SQ-2", "SQ-3"}}, nil)

	// A single failing quotation does not abort the sweep.
	require.NoError(t, h.HandleConversionReconcile(context.Background(), NewConversionReconcileTask()))
	require.Equal(t, []string{"SQ-1", "SQ-3"}, converter.converted)
}

func TestHandleConversionReconcileListError(t *testing.T) {
	boom := errors.New("query failed")
	h := NewConversionHandlers(&stubConverter{}, stubLister{err: boom}, nil)
	require.ErrorIs(t, h.HandleConversionReconcile(context.Background(), NewConversionReconcileTask()), boom)
}
