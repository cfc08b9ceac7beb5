package wsutil

import "log/slog"

// TrySend enqueues data on ch without blocking. It reports false when the
// queue is full or ch has already been closed; a send on a closed channel is
// recovered and logged instead of crashing the caller.
func TrySend(ch chan<- []byte, data []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("send on closed channel", "tag", "wsutil", "panic", r)
			ok = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
