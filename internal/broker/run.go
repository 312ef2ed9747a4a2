package broker

import (
	"context"
	"time"

	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/transport"
)

// acceptPoll is how long a single loop pass waits on each listener for a
// pending connection. Kept short so accepting never starves live sessions.
const acceptPoll = time.Millisecond

// idleSleep paces the loop when there is nothing to poll, well inside the
// 100ms ceiling the QoS tick interval tolerates.
const idleSleep = 20 * time.Millisecond

// Run drives the broker loop until ctx is cancelled:
// poll each listener for new connections, advance every session by one
// packet, fire the QoS and Keep-Alive timers, reap the dead, and publish a
// fresh state snapshot for the status goroutine. Everything the broker
// owns is touched only from this goroutine.
func (b *Broker) Run(ctx context.Context, listeners []transport.Listener, holder *SnapshotHolder) {
	logger.Info("broker loop started", "listeners", len(listeners))

	for {
		select {
		case <-ctx.Done():
			b.shutdown(listeners)
			return
		default:
		}

		for _, l := range listeners {
			conn, err := l.Accept(acceptPoll)
			if err != nil {
				if transport.IsNoConnection(err) {
					continue
				}
				// Loop faults are fatal to the process.
				logger.Fatal("listener accept failed", "id", l.ID(), "err", err)
				b.shutdown(listeners)
				return
			}
			b.Adopt(conn)
		}

		b.Tick()
		if holder != nil {
			holder.set(b.Snapshot())
		}

		if len(b.sessions) == 0 {
			time.Sleep(idleSleep)
		}
	}
}

// shutdown closes every listener and tears down every session. Sessions
// are closed ungracefully from their clients' point of view, so armed LWTs
// fire on the way out.
func (b *Broker) shutdown(listeners []transport.Listener) {
	logger.Info("broker loop shutting down", "sessions", len(b.sessions))
	for _, l := range listeners {
		if err := l.Close(); err != nil {
			logger.Warn("listener close failed", "id", l.ID(), "err", err)
		}
	}
	for _, s := range b.sessions {
		b.closeSession(s)
	}
	b.reapClosed()
}
