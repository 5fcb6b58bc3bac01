package shutdown

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var logger *log.Logger = log.Default()

var DefaultShutdown = New()

func Add(fn func()) {
	DefaultShutdown.Add(fn)
}

func Listen() {
	DefaultShutdown.Listen()
}

func SendShutdownSignal(indicateFailure bool) {
	DefaultShutdown.SendShutdownSignal(indicateFailure)
}

type Shutdown struct {
	hooks []func()
	mutex *sync.Mutex
}

func New() *Shutdown {
	return &Shutdown{
		hooks: []func(){},
		mutex: &sync.Mutex{},
	}
}

func (s *Shutdown) Add(fn func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Shutdown) SendShutdownSignal(indicateFailure bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	logger.Println("sending request to shut down")
	if indicateFailure {
		err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		if err != nil {
			panic(fmt.Errorf("failed to send SIGTERM signal: %s", err.Error()))
		}
	} else {
		err := syscall.Kill(syscall.Getpid(), syscall.SIGINT)
		if err != nil {
			panic(fmt.Errorf("failed to send SIGINT signal: %s", err.Error()))
		}
	}
}

// Blocks until SIGINT or SIGTERM arrives, then runs every registered
// hook in reverse registration order and exits.
func (s *Shutdown) Listen() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	s.mutex.Lock()
	hooks := make([]func(), len(s.hooks))
	copy(hooks, s.hooks)
	s.mutex.Unlock()

	logger.Printf("received %s - shutting down", sig.String())
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	if sig == syscall.SIGTERM {
		os.Exit(1)
	}
	os.Exit(0)
}
