package composite

import (
	"context"
	"errors"
	"testing"

	"spreadwatch/internal/domain"
)

type stubRepo struct {
	metrics int
	alerts  int
	closed  bool
	fail    bool
	nextID  int64
}

func (s *stubRepo) SaveSpreadMetric(ctx context.Context, m *domain.SpreadMetric) error {
	if s.fail {
		return errors.New("backend down")
	}
	s.metrics++
	return nil
}

func (s *stubRepo) SaveAlert(ctx context.Context, a *domain.AlertRecord) (int64, error) {
	if s.fail {
		return 0, errors.New("backend down")
	}
	s.alerts++
	s.nextID++
	return s.nextID, nil
}

func (s *stubRepo) Close() error {
	s.closed = true
	return nil
}

func TestFanOutWritesAllBackends(t *testing.T) {
	a, b := &stubRepo{}, &stubRepo{}
	repo := New(a, nil, b)

	if repo.Size() != 2 {
		t.Fatalf("Size = %d, want 2", repo.Size())
	}

	ctx := context.Background()
	if err := repo.SaveSpreadMetric(ctx, &domain.SpreadMetric{Symbol: "BTCUSDT"}); err != nil {
		t.Fatalf("SaveSpreadMetric: %v", err)
	}
	if _, err := repo.SaveAlert(ctx, &domain.AlertRecord{Symbol: "BTCUSDT"}); err != nil {
		t.Fatalf("SaveAlert: %v", err)
	}

	if a.metrics != 1 || b.metrics != 1 {
		t.Errorf("metrics fan-out: a=%d b=%d", a.metrics, b.metrics)
	}
	if a.alerts != 1 || b.alerts != 1 {
		t.Errorf("alerts fan-out: a=%d b=%d", a.alerts, b.alerts)
	}
}

func TestFirstErrorDoesNotStopOthers(t *testing.T) {
	bad, good := &stubRepo{fail: true}, &stubRepo{}
	repo := New(bad, good)

	ctx := context.Background()
	if err := repo.SaveSpreadMetric(ctx, &domain.SpreadMetric{Symbol: "BTCUSDT"}); err == nil {
		t.Fatal("expected error from failing backend")
	}
	if good.metrics != 1 {
		t.Errorf("good backend metrics = %d, want 1", good.metrics)
	}

	id, err := repo.SaveAlert(ctx, &domain.AlertRecord{Symbol: "BTCUSDT"})
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
	if id != 1 {
		t.Errorf("id = %d, want id from surviving backend", id)
	}
}

func TestCloseClosesAll(t *testing.T) {
	a, b := &stubRepo{}, &stubRepo{}
	repo := New(a, b)
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("not all backends closed")
	}
}
