package invoker

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/surface"
	"github.com/roach88/txcomplete/internal/testutil"
)

func TestConcurrent_PerListenerOrderPreserved(t *testing.T) {
	const (
		listeners = 4
		batches   = 50
	)
	ctx := context.Background()
	inv := newTestInvoker(t)
	seq := callback.NewSequencer()

	fakes := make([]*fakeListener, listeners)
	for i := range fakes {
		fakes[i] = newFakeListener(fmt.Sprintf("L%d", i))
	}

	handles := make(chan *CallbackHandle, listeners*batches)
	var producers sync.WaitGroup
	for _, l := range fakes {
		producers.Add(1)
		go func(l *fakeListener) {
			defer producers.Done()
			for i := 0; i < batches; i++ {
				kind := callback.KindPresent
				if i%3 == 0 {
					kind = callback.KindCommit
				}
				ids := seq.Run(2, kind)
				b := Batch{Listener: l, CallbackIDs: ids}
				h := latchedHandle(l, ids, surface.New("s"), int64(i))

				assert.NoError(t, inv.StartRegistration(b))
				assert.NoError(t, inv.RegisterPendingHandle(h))
				assert.NoError(t, inv.EndRegistration(b))
				handles <- h
			}
		}(l)
	}

	finalized := make(chan struct{})
	go func() {
		defer close(finalized)
		for h := range handles {
			remaining, err := inv.FinalizeOnCommitHandles([]*CallbackHandle{h})
			assert.NoError(t, err)
			assert.NoError(t, inv.FinalizePendingHandles(remaining, nil))
		}
	}()

	// One vsync per present fence.
	clock := testutil.NewClock(0, 16_666_667)
	stop := make(chan struct{})
	presenterDone := make(chan struct{})
	go func() {
		defer close(presenterDone)
		for n := 0; ; n++ {
			select {
			case <-stop:
				return
			default:
			}
			inv.AddPresentFence(clock.SignaledFence(fmt.Sprintf("F%d", n)))
			_ = inv.SendCallbacks(ctx)
		}
	}()

	producers.Wait()
	close(handles)
	<-finalized
	close(stop)
	<-presenterDone

	inv.AddPresentFence(clock.SignaledFence("final"))
	require.NoError(t, inv.SendCallbacks(ctx))

	for _, l := range fakes {
		leads := l.deliveredLeads()
		assert.Len(t, leads, batches, "listener %s", l.id)
		assert.True(t, slices.IsSorted(leads), "listener %s received out of order: %v", l.id, leads)
	}
	assert.Empty(t, inv.Listeners())
}
