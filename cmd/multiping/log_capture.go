package main

import (
	"bytes"
	"strings"
	"sync"
)

// logInterceptor keeps the latest log lines for display.
type logInterceptor struct {
	keep     int
	messages []string
	mtx      sync.Mutex
}

func (li *logInterceptor) Write(p []byte) (n int, err error) {
	li.mtx.Lock()
	defer li.mtx.Unlock()

	li.messages = append(li.messages, string(bytes.TrimSpace(p)))
	if li.keep > 0 {
		li.truncate()
	}

	return len(p), nil
}

func (li *logInterceptor) String() string {
	li.mtx.Lock()
	defer li.mtx.Unlock()

	return strings.Join(li.messages, "\n")
}

func (li *logInterceptor) truncate() {
	if delta := len(li.messages) - li.keep; delta > 0 {
		li.messages = li.messages[delta:]
	}
}
