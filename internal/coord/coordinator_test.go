package coord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBeginIssuesIncreasingTokens(t *testing.T) {
	c := New(context.Background())
	defer c.Close()
	lane := c.NewLane("search")

	_, t1 := lane.Begin()
	_, t2 := lane.Begin()
	_, t3 := lane.Begin()

	if !(t1 < t2 && t2 < t3) {
		t.Errorf("tokens not increasing: %d %d %d", t1, t2, t3)
	}
	if t1 == 0 {
		t.Error("zero token issued")
	}
}

func TestBeginSupersedesPrevious(t *testing.T) {
	c := New(context.Background())
	defer c.Close()
	lane := c.NewLane("search")

	ctx1, t1 := lane.Begin()
	ctx2, t2 := lane.Begin()

	if !errors.Is(ctx1.Err(), context.Canceled) {
		t.Errorf("first context should be cancelled, got %v", ctx1.Err())
	}
	if ctx2.Err() != nil {
		t.Errorf("second context should be live, got %v", ctx2.Err())
	}
	if lane.Current(t1) {
		t.Error("superseded token reported current")
	}
	if !lane.Current(t2) {
		t.Error("latest token not current")
	}
}

func TestCancelInvalidatesWithoutNewRequest(t *testing.T) {
	c := New(context.Background())
	defer c.Close()
	lane := c.NewLane("detail")

	ctx, tok := lane.Begin()
	lane.Cancel()

	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
	if lane.Current(tok) {
		t.Error("token should not be current after Cancel")
	}
	if lane.Current(0) {
		t.Error("zero token must never be current")
	}

	// Cancel with nothing in flight is harmless.
	lane.Cancel()
	if got := lane.Stats().Cancelled; got != 1 {
		t.Errorf("Cancelled = %d, want 1", got)
	}
}

func TestLanesAreIndependent(t *testing.T) {
	c := New(context.Background())
	defer c.Close()
	search := c.NewLane("search")
	detail := c.NewLane("detail")

	sctx, stok := search.Begin()
	_, _ = detail.Begin()
	detail.Cancel()

	if sctx.Err() != nil || !search.Current(stok) {
		t.Error("cancelling one lane must not affect another")
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	c := New(context.Background())
	search := c.NewLane("search")
	detail := c.NewLane("detail")

	sctx, stok := search.Begin()
	dctx, dtok := detail.Begin()
	c.Close()

	select {
	case <-sctx.Done():
	case <-time.After(time.Second):
		t.Fatal("search context not cancelled by Close")
	}
	if dctx.Err() == nil {
		t.Error("detail context not cancelled by Close")
	}
	if search.Current(stok) || detail.Current(dtok) {
		t.Error("tokens should not be current after Close")
	}
	if !c.Closed() {
		t.Error("Closed() should report true")
	}

	// Idempotent.
	c.Close()
}

func TestBeginAfterClose(t *testing.T) {
	c := New(context.Background())
	lane := c.NewLane("search")
	c.Close()

	ctx, tok := lane.Begin()
	if ctx.Err() == nil {
		t.Error("context begun after Close should already be cancelled")
	}
	if lane.Current(tok) {
		t.Error("token begun after Close must not be current")
	}
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	c := New(parent)
	defer c.Close()
	lane := c.NewLane("search")

	ctx, _ := lane.Begin()
	cancel()

	if ctx.Err() == nil {
		t.Error("lane context should follow parent cancellation")
	}
}

func TestDoneKeepsTokenCurrent(t *testing.T) {
	c := New(context.Background())
	defer c.Close()
	lane := c.NewLane("detail")

	_, tok := lane.Begin()
	lane.Done(tok)

	if !lane.Current(tok) {
		t.Error("finished token should stay current until superseded")
	}
	st := lane.Stats()
	if st.InFlight {
		t.Error("finished request should not be in flight")
	}

	lane.Cancel()
	if got := lane.Stats().Cancelled; got != 0 {
		t.Errorf("finished request counted as cancelled: %d", got)
	}
}

func TestLaneStats(t *testing.T) {
	c := New(context.Background())
	defer c.Close()
	c.NewLane("search").Begin()
	c.NewLane("detail")

	stats := c.Lanes()
	if len(stats) != 2 {
		t.Fatalf("expected 2 lanes, got %d", len(stats))
	}
	if stats[0].Name != "search" || !stats[0].InFlight || stats[0].Begun != 1 {
		t.Errorf("search stats wrong: %+v", stats[0])
	}
	if stats[1].Name != "detail" || stats[1].InFlight || stats[1].Seq != 0 {
		t.Errorf("detail stats wrong: %+v", stats[1])
	}
}

func TestConcurrentBeginAndClose(t *testing.T) {
	c := New(context.Background())
	lane := c.NewLane("search")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, tok := lane.Begin()
				lane.Current(tok)
			}
		}()
	}
	c.Close()
	wg.Wait()

	_, tok := lane.Begin()
	if lane.Current(tok) {
		t.Error("no token may be current after Close")
	}
}
