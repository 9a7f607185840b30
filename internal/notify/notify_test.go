package notify

import (
	"sync"
	"testing"
	"time"
)

func TestNotifyWakesAllWaiters(t *testing.T) {
	var s Set
	const n = 8
	var wg sync.WaitGroup
	ready := make(chan struct{}, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := s.Wait()
			ready <- struct{}{}
			<-ch
		}()
	}
	for range n {
		<-ready
	}
	s.Notify()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiters not woken")
	}
}

func TestNotifyInstallsFreshChannel(t *testing.T) {
	var s Set
	first := s.Wait()
	s.Notify()
	select {
	case <-first:
	default:
		t.Fatal("expected first channel closed")
	}
	second := s.Wait()
	select {
	case <-second:
		t.Fatal("expected second channel open")
	default:
	}
}

func TestNotifyWithoutWaiters(t *testing.T) {
	var s Set
	s.Notify()
	s.Notify()
	select {
	case <-s.Wait():
		t.Fatal("notify without waiters must not leave a closed channel")
	default:
	}
}

func TestClose(t *testing.T) {
	var s Set
	ch := s.Wait()
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Fatal("expected closed")
	}
	select {
	case <-ch:
	default:
		t.Fatal("expected pending waiter woken")
	}
	select {
	case <-s.Wait():
	default:
		t.Fatal("expected Wait after Close to return a closed channel")
	}
	s.Notify()
}
