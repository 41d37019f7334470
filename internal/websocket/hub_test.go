package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// readMessage 从发送缓冲取出一条消息并解码
func readMessage(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return &msg
	default:
		t.Fatal("发送缓冲中没有消息")
		return nil
	}
}

func TestClientEnqueue_BeforeRegister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := NewClient(hub, nil, "game-1")

	// 尚未注册也必须能写入首帧，连接时序不依赖Hub的异步注册
	require.NoError(t, client.Enqueue(MessageTypeGameState, map[string]string{"id": "game-1"}))

	msg := readMessage(t, client)
	assert.Equal(t, MessageTypeGameState, msg.Type)
	assert.Equal(t, "game-1", msg.GameID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "game-1", payload["id"])
}

func TestClientEnqueue_BufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := NewClient(hub, nil, "game-1")

	for i := 0; i < cap(client.Send); i++ {
		require.NoError(t, client.Enqueue(MessageTypeGameMove, i))
	}
	assert.ErrorIs(t, client.Enqueue(MessageTypeGameMove, "overflow"), ErrSendBufferFull)
}

func TestHub_PublishGame(t *testing.T) {
	hub := NewHub(zap.NewNop())
	watcher := NewClient(hub, nil, "game-1")
	other := NewClient(hub, nil, "game-2")
	hub.registerClient(watcher)
	hub.registerClient(other)

	// 注册时各自收到connected
	assert.Equal(t, MessageTypeConnected, readMessage(t, watcher).Type)
	assert.Equal(t, MessageTypeConnected, readMessage(t, other).Type)

	require.NoError(t, hub.PublishGame("game-1", MessageTypeGameMove,
		map[string]string{"article": "Banana"}))

	msg := readMessage(t, watcher)
	assert.Equal(t, MessageTypeGameMove, msg.Type)
	assert.Equal(t, "game-1", msg.GameID)

	// 其他对局的观察者收不到
	assert.Empty(t, other.Send)
	assert.Equal(t, 1, hub.WatcherCount("game-1"))
}
