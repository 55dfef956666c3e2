// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq_test

import (
	"errors"
	"fmt"
	"sync"

	"code.hybscloud.com/streamq"
)

// ExampleNewExecutor demonstrates deferring calls to a worker pool.
func ExampleNewExecutor() {
	// One worker: tasks run in submission order
	ex, err := streamq.NewExecutor(streamq.DefaultCapacity, 1)
	if err != nil {
		fmt.Println(err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		ex.SubmitPPI(func(c1, _ any, p1 int) {
			defer wg.Done()
			fmt.Println(c1, p1)
		}, "seek", nil, i*100)
	}
	wg.Wait()

	// Queued tasks run before Shutdown returns
	ex.Shutdown()
	fmt.Println(errors.Is(ex.SubmitPP(func(_, _ any) {}, nil, nil), streamq.ErrRejected))

	// Output:
	// seek 100
	// seek 200
	// seek 300
	// true
}

// ExampleExecutor_TrySubmit demonstrates non-blocking submission.
func ExampleExecutor_TrySubmit() {
	ex, _ := streamq.New(1).Workers(1).BuildExecutor()
	defer ex.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	ex.SubmitPP(func(_, _ any) {
		close(started)
		<-release
	}, nil, nil)
	<-started

	// The worker is busy: one task fits in the queue, the next does not
	fmt.Println(ex.TrySubmit(streamq.NewTaskPP(func(_, _ any) {}, nil, nil)))
	err := ex.TrySubmit(streamq.NewTaskPP(func(_, _ any) {}, nil, nil))
	fmt.Println(streamq.IsWouldBlock(err))
	close(release)

	// Output:
	// <nil>
	// true
}

// ExampleBufferQueue demonstrates partial consumption and retirement.
func ExampleBufferQueue() {
	q, _ := streamq.NewBufferQueue(4)
	defer q.Close()

	q.RegisterCallback(func(_ *streamq.BufferQueue, _ any, ev streamq.Processed) {
		fmt.Printf("retired %v: %d bytes\n", ev.BufferContext, ev.Size)
	}, nil)

	q.Enqueue("chunk-0", make([]byte, 100))

	// A short pull leaves the buffer at the front
	fmt.Println(q.Pull(make([]byte, 40)))
	fmt.Println(q.State().Count)

	// A long pull delivers the rest and retires it
	fmt.Println(q.Pull(make([]byte, 70)))
	fmt.Println(q.State().Count, q.State().Index)

	// Output:
	// 40
	// 1
	// retired chunk-0: 100 bytes
	// 60
	// 0 1
}

// ExampleBufferQueue_starvation demonstrates the starvation notification.
func ExampleBufferQueue_starvation() {
	q, _ := streamq.New(2).Listener(streamq.ListenerFuncs{
		Starved: func() { fmt.Println("starved") },
		Data:    func(n int) { fmt.Println("delivered", n) },
	}).BuildBufferQueue()
	defer q.Close()

	fmt.Println(q.Pull(make([]byte, 16)))
	q.Enqueue(nil, []byte("frame"))
	fmt.Println(q.Pull(make([]byte, 16)))

	// Output:
	// starved
	// 0
	// delivered 5
	// 5
}

// ExampleBufferQueue_Source demonstrates a non-owning pull handle.
func ExampleBufferQueue_Source() {
	q, _ := streamq.NewBufferQueue(2)
	src := q.Source()

	q.Enqueue(nil, []byte("pcm"))
	fmt.Println(src.Pull(make([]byte, 8)))

	// After Close the handle is inert
	q.Close()
	fmt.Println(src.Pull(make([]byte, 8)))

	// Output:
	// 3
	// 0
}

// ExampleGuard demonstrates teardown racing a callback.
func ExampleGuard() {
	g := streamq.NewGuard()

	callback := func() {
		if !g.Enter() {
			fmt.Println("refused")
			return
		}
		defer g.Exit()
		fmt.Println("running")
	}

	callback()
	g.RequestExitAndWait()
	callback()

	// Output:
	// running
	// refused
}
