package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tenf/portal/internal/models/dtos"
)

type countingLister struct {
	calls atomic.Int32
	err   error
}

func (c *countingLister) LiveStreams(ctx context.Context) ([]dtos.TwitchStream, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []dtos.TwitchStream{{UserLogin: "alice"}}, nil
}

func TestLiveCacheWorker_Refill(t *testing.T) {
	ok := &countingLister{}
	assert.Equal(t, 1, NewLiveCacheWorker(ok, 0).refill(context.Background()))

	failing := &countingLister{err: errors.New("helix down")}
	assert.Equal(t, 0, NewLiveCacheWorker(failing, 0).refill(context.Background()))
}

func TestLiveCacheWorker_StopsOnCancel(t *testing.T) {
	lister := &countingLister{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewLiveCacheWorker(lister, 5*time.Millisecond).Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return lister.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestInitWorkers_NilLister(t *testing.T) {
	c := InitWorkers(context.Background(), nil, time.Second)
	assert.Nil(t, c.LiveCache)
}
