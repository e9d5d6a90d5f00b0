package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRegistryWaitUnknownTask(t *testing.T) {
	reg := NewTaskRegistry()

	done := make(chan struct{})
	go func() {
		reg.Wait("never-registered")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on a task that was never registered")
	}
}

func TestTaskRegistryWaitBlocksUntilDone(t *testing.T) {
	reg := NewTaskRegistry()

	var finished atomic.Bool
	done := reg.begin("upload1")

	waited := make(chan struct{})
	go func() {
		reg.Wait("upload1")
		assert.True(t, finished.Load())
		close(waited)
	}()

	time.Sleep(10 * time.Millisecond)
	finished.Store(true)
	done()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after task completion")
	}
}

func TestTaskRegistryWaitAll(t *testing.T) {
	reg := NewTaskRegistry()

	done1 := reg.begin("upload1")
	done2 := reg.begin("upload2")

	waited := make(chan struct{})
	go func() {
		reg.WaitAll()
		close(waited)
	}()

	done1()

	select {
	case <-waited:
		t.Fatal("WaitAll returned with a task still running")
	case <-time.After(20 * time.Millisecond):
	}

	done2()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("WaitAll never returned")
	}
}
