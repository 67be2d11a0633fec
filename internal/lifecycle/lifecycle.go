// Package lifecycle runs shutdown hooks when the process receives SIGINT or SIGTERM.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

type Handler func(os.Signal)

type HandlerID int64

type hook struct {
	id      HandlerID
	handler Handler
}

var (
	shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	nextID          atomic.Int64

	listenOnce sync.Once
	signals    chan os.Signal

	hooksMu sync.Mutex
	hooks   []hook

	channelFactory = newSignalChan
	notifyFunc     = signal.Notify
	stopFunc       = signal.Stop
	exitFunc       = os.Exit
)

// Register adds a shutdown hook. Hooks run newest first, then the process exits with the
// conventional 128+signal code.
func Register(handler Handler) HandlerID {
	if handler == nil {
		return 0
	}
	listenOnce.Do(listen)

	id := HandlerID(nextID.Add(1))
	hooksMu.Lock()
	hooks = append(hooks, hook{id: id, handler: handler})
	hooksMu.Unlock()
	return id
}

func Unregister(id HandlerID) {
	if id == 0 {
		return
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	for i, existing := range hooks {
		if existing.id == id {
			hooks = append(hooks[:i], hooks[i+1:]...)
			return
		}
	}
}

func listen() {
	signals = channelFactory()
	notifyFunc(signals, shutdownSignals...)
	go func(ch chan os.Signal) {
		sig := <-ch
		runHooks(sig)
		exitFunc(exitCode(sig))
	}(signals)
}

func runHooks(sig os.Signal) {
	hooksMu.Lock()
	snapshot := make([]hook, len(hooks))
	copy(snapshot, hooks)
	hooksMu.Unlock()

	for i := len(snapshot) - 1; i >= 0; i-- {
		safeCall(snapshot[i].handler, sig)
	}
}

func safeCall(handler Handler, sig os.Signal) {
	defer func() {
		_ = recover()
	}()
	handler(sig)
}

func exitCode(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return 130
	case syscall.SIGTERM:
		return 143
	default:
		return 1
	}
}

func newSignalChan() chan os.Signal {
	return make(chan os.Signal, 1)
}

// reset clears global state. Tests only.
func reset() {
	if signals != nil {
		stopFunc(signals)
	}
	signals = nil
	listenOnce = sync.Once{}
	nextID.Store(0)
	hooksMu.Lock()
	hooks = nil
	hooksMu.Unlock()

	channelFactory = newSignalChan
	notifyFunc = signal.Notify
	stopFunc = signal.Stop
	exitFunc = os.Exit
}
