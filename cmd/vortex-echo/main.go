// Command vortex-echo is a small demonstration server: it upgrades HTTP
// connections to WebSocket, copies every message's payload through a
// pooled Buffer, and echoes it back with the same message type.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/vitalvas/vortex/buffer"
	"github.com/vitalvas/vortex/websocket"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	upgrader := websocket.Upgrader{
		ReadBufferSize: 4096,
		WriteBufferSize: 4096,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	alloc := buffer.NewAllocator()

	http.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		connID := uuid.New()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("upgrade failed", "conn", connID, "error", err)
			return
		}
		defer conn.Close()

		logger.Info("connection opened", "conn", connID, "remote", conn.RemoteAddr())

		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				logger.Info("connection closed", "conn", connID, "error", err)
				return
			}

			echoed, err := roundTripThroughBuffer(alloc, payload)
			if err != nil {
				logger.Error("buffer round trip failed", "conn", connID, "error", err)
				return
			}

			if err := conn.WriteMessage(msgType, echoed); err != nil {
				logger.Error("write failed", "conn", connID, "error", err)
				return
			}
		}
	})

	logger.Info("listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// roundTripThroughBuffer copies payload into a pooled Buffer and back out,
// exercising the allocator/pool path for every echoed message instead of
// handling the []byte directly.
func roundTripThroughBuffer(alloc *buffer.Allocator, payload []byte) ([]byte, error) {
	buf, err := alloc.Buffer(len(payload))
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	if _, err := buf.WriteBytes(payload); err != nil {
		return nil, err
	}
	return buf.ReadBytes(buf.ReadableBytes())
}
