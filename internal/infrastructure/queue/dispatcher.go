package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api/metrics"
	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ReadSink marks one message as read upstream.
type ReadSink interface {
	MarkAsRead(ctx context.Context, id string) error
}

// ReadSinkFunc adapts a plain function to ReadSink.
type ReadSinkFunc func(ctx context.Context, id string) error

func (f ReadSinkFunc) MarkAsRead(ctx context.Context, id string) error { return f(ctx, id) }

// Dispatcher delivers read receipts in the background. Receipts are routed to
// a fixed set of workers by hashing the message ID, so receipts for the same
// message are delivered in order.
type Dispatcher struct {
	workers []chan ports.ReadReceipt
	sink    ReadSink
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.ReadMarker = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ReadSink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ReadReceipt, numWorkers),
		sink:    sink,
		log:     log.With().Str("component", "read_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ReadReceipt, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a receipt to the worker responsible for its message. It never
// blocks: when that worker's buffer is full the receipt is dropped and the
// message simply stays unread upstream.
func (d *Dispatcher) Enqueue(r ports.ReadReceipt) bool {
	idx := d.shardIndex(r.MessageID)
	select {
	case d.workers[idx] <- r:
		metrics.ReadQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.ReadReceiptsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("message_id", r.MessageID).Int("worker_id", idx).Msg("read queue full, receipt dropped")
		return false
	}
}

// shardIndex maps a message ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(messageID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(messageID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ReadReceipt) {
	defer d.wg.Done()
	depth := metrics.ReadQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if err := d.sink.MarkAsRead(authctx.WithToken(ctx, r.Token), r.MessageID); err != nil {
				metrics.ReadReceiptsTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Str("message_id", r.MessageID).
					Int("worker_id", id).
					Msg("mark as read failed")
				continue
			}
			metrics.ReadReceiptsTotal.WithLabelValues("ok").Inc()
		}
	}
}
