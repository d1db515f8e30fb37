package wsconn

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// readFrame is one frame pulled off the wire, or the terminal read
// error that ended the reader goroutine.
type readFrame struct {
	msg Message
	err error
}

// startFrameReader spawns the blocking gorilla read loop in its own
// goroutine and reports each frame (or the terminal error) on the
// returned channel, exactly the role the teacher's Client.readPump
// plays relative to writePump — gorilla's Conn has no context-based
// cancellation, so a dedicated goroutine plus conn.Close() to unblock
// it is the idiomatic way to make reads observable from a select.
//
// pongWait is the read deadline refreshed on every Pong frame (mirrors
// client.go's SetPongHandler); conn.Close() is the caller's
// responsibility once shutdown is observed. A pongWait of zero means
// this connection mode has no keepalive and no read deadline is
// enforced.
func startFrameReader(conn *websocket.Conn, pongWait time.Duration) <-chan readFrame {
	ch := make(chan readFrame)
	conn.SetReadLimit(maxMessageSize)
	if pongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	conn.SetPongHandler(func(payload string) error {
		if pongWait > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		ch <- readFrame{msg: Message{Kind: FramePong, Data: []byte(payload)}}
		return nil
	})

	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				ch <- readFrame{err: err}
				close(ch)
				return
			}
			switch mt {
			case websocket.TextMessage:
				ch <- readFrame{msg: Message{Kind: FrameText, Text: string(data)}}
			case websocket.BinaryMessage:
				ch <- readFrame{msg: Message{Kind: FrameBinary, Data: data}}
			case websocket.PingMessage:
				ch <- readFrame{msg: Message{Kind: FramePing, Data: data}}
			case websocket.CloseMessage:
				ch <- readFrame{msg: Message{Kind: FrameClose}}
			default:
				ch <- readFrame{msg: Message{Kind: FrameRaw, Data: data}}
			}
		}
	}()
	return ch
}

func writeMessage(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	switch msg.Kind {
	case FrameText:
		return conn.WriteMessage(websocket.TextMessage, []byte(msg.Text))
	case FrameBinary:
		return conn.WriteMessage(websocket.BinaryMessage, msg.Data)
	case FramePing:
		return conn.WriteMessage(websocket.PingMessage, msg.Data)
	case FramePong:
		return conn.WriteMessage(websocket.PongMessage, msg.Data)
	case FrameClose:
		return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(msg.CloseCode, msg.CloseReason))
	default:
		panic("wsconn: attempted to write a raw frame, which is never a valid outbound message")
	}
}
