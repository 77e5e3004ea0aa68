package realtime

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medipal/internal/ports/notifier"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHub_PublishesEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	d := notifier.Delivered{InstanceID: "r1:100", RequestID: "r1", Content: notifier.Content{
		Title:   "Time to take your medicine",
		Payload: notifier.Payload{MedicationID: "m1", ReminderTime: "08:00"},
	}}
	require.NoError(t, hub.Publish(context.Background(), notifier.Event{Type: notifier.EventDelivered, Notification: &d}))

	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(notifier.EventDelivered), msg.Type)
	require.NotNil(t, msg.Event)
	require.NotNil(t, msg.Event.Notification)
	assert.Equal(t, "r1:100", msg.Event.Notification.InstanceID)
	assert.Equal(t, "m1", msg.Event.Notification.Content.Payload.MedicationID)
}

func TestHub_ResponsesAndPing(t *testing.T) {
	got := make(chan string, 4)
	respond := func(ctx context.Context, instanceID, actionID string) error {
		if instanceID == "missing" {
			return errors.New("notification not found")
		}
		got <- instanceID + "/" + actionID
		return nil
	}

	hub := NewHub(respond, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgPing}))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgPong, msg.Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgResponse, InstanceID: "r1:100", ActionID: notifier.ActionDone}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgAck, msg.Type)
	assert.Equal(t, "r1:100", msg.InstanceID)
	assert.Equal(t, "r1:100/DONE", <-got)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgResponse, InstanceID: "missing", ActionID: notifier.ActionDone}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, msg.Error, "not found")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "bogus"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgError, msg.Type)
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	// publicar sin clientes no falla
	assert.NoError(t, hub.Publish(context.Background(), notifier.Event{Type: notifier.EventDismissed, InstanceIDs: []string{"x"}}))
}
