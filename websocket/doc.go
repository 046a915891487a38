// Package websocket implements the server side of the WebSocket protocol
// (RFC 6455) as a thin transport shim over buffer.Buffer and
// pipeline.Frame: every frame that crosses the wire is built and read
// through the same types the permessage-deflate codec and the rest of
// this module operate on, rather than raw []byte.
//
// Server Example:
//
//	var upgrader = websocket.Upgrader{
//	    ReadBufferSize:  1024,
//	    WriteBufferSize: 1024,
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    conn, err := upgrader.Upgrade(w, r, nil)
//	    if err != nil {
//	        return
//	    }
//	    defer conn.Close()
//
//	    for {
//	        messageType, p, err := conn.ReadMessage()
//	        if err != nil {
//	            return
//	        }
//	        if err := conn.WriteMessage(messageType, p); err != nil {
//	            return
//	        }
//	    }
//	}
//
// Concurrency:
//
// A Conn supports one concurrent reader and one concurrent writer.
// Callers must ensure no more than one goroutine calls ReadMessage at a
// time, and no more than one goroutine calls WriteMessage at a time.
// Close may be called concurrently with either.
//
// Origin Checking:
//
// Web browsers allow any site to open a WebSocket connection to any
// other site. The server must validate the Origin header to prevent
// attacks. Upgrader calls CheckOrigin to validate the request origin;
// if CheckOrigin is nil, a safe default rejects cross-origin requests.
//
// Compression:
//
// Per-message compression is negotiated during the handshake when
// EnableCompression is set on the Upgrader. Negotiated connections run
// every frame through package permessagedeflate's Encoder/Decoder pair
// rather than a second, independent DEFLATE implementation.
package websocket
