package main

import "github.com/fwojciec/parley"

// mainLoop serializes dispatcher callbacks onto the REPL goroutine.
type mainLoop struct {
	queue chan func()
}

func newMainLoop(size int) *mainLoop {
	return &mainLoop{queue: make(chan func(), size)}
}

// Poster returns the parley.Poster that enqueues onto the loop.
func (l *mainLoop) Poster() parley.Poster {
	return func(fn func()) { l.queue <- fn }
}
