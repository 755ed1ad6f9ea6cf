package transport

import (
	"context"
	"io"
	"sync"
)

// FakeSocket is an in-memory Socket for tests.
type FakeSocket struct {
	readCh    chan string
	mu        sync.Mutex
	written   []string
	writeErr  error
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

func NewFakeSocket() *FakeSocket {
	return &FakeSocket{readCh: make(chan string, 64), done: make(chan struct{})}
}

// EmitText queues an inbound frame.
func (f *FakeSocket) EmitText(text string) {
	select {
	case <-f.done:
	case f.readCh <- text:
	}
}

func (f *FakeSocket) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-f.done:
		return "", io.EOF
	case text := <-f.readCh:
		return text, nil
	}
}

func (f *FakeSocket) WriteText(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, text)
	return nil
}

// FailWrites makes every following write return err.
func (f *FakeSocket) FailWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

func (f *FakeSocket) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func (f *FakeSocket) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeSocket) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

// FakeDialer hands out Socket (or Err) and records dialed URLs.
type FakeDialer struct {
	Socket Socket
	Err    error

	mu   sync.Mutex
	urls []string
}

func (d *FakeDialer) Dial(ctx context.Context, url string) (Socket, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Socket, nil
}

func (d *FakeDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}
