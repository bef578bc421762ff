package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"alejo-lab-api/internal/platform/logging"
)

// Publisher is what the pipeline needs from the bus.
type Publisher interface {
	PublishAsync(topic string, args ...interface{})
}

// Bus fans events out to subscribers on a small worker pool so request
// handlers never wait on metrics or audit logging.
type Bus struct {
	bus       evbus.Bus
	logger    *logging.Logger
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// New creates a bus; call Start before publishing asynchronously.
func New(workerNum, queueSize int, logger *logging.Logger) *Bus {
	if workerNum <= 0 {
		workerNum = 4
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Bus{
		bus:       evbus.New(),
		logger:    logger,
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, queueSize),
		stopChan:  make(chan struct{}),
	}
}

func (b *Bus) Start() {
	b.startOnce.Do(func() {
		for i := 0; i < b.workerNum; i++ {
			b.wg.Add(1)
			go b.worker()
		}
	})
}

// Stop drains queued events and waits for the workers to exit.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
	})
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.workChan:
			b.dispatch(event)
		case <-b.stopChan:
			for {
				select {
				case event := <-b.workChan:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(event asyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorTag("EVENTS", "subscriber panic on %s: %v", event.topic, r)
		}
	}()
	b.bus.Publish(event.topic, event.args...)
}

// Publish delivers synchronously on the caller's goroutine.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

// PublishAsync queues the event; it is dropped when the queue is full.
func (b *Bus) PublishAsync(topic string, args ...interface{}) {
	select {
	case b.workChan <- asyncEvent{topic: topic, args: args}:
	default:
		b.logger.WarnTag("EVENTS", "queue full, dropping %s", topic)
	}
}

func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}
