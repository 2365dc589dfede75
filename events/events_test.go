package events

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	maker  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	digest = common.HexToHash("0xabcdef")
)

type failingSink struct{ err error }

func (f failingSink) Emit(context.Context, Event) error { return f.err }

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	require.NoError(t, r.Emit(ctx, NewNonceIncremented(maker, 1)))
	require.NoError(t, r.Emit(ctx, NewOrderCancelled(maker, digest)))
	require.NoError(t, r.Emit(ctx, NewNonceIncremented(maker, 2)))

	assert.Len(t, r.Events(), 3)
	nonces := r.OfType(TypeNonceIncremented)
	require.Len(t, nonces, 2)
	assert.Equal(t, uint64(2), nonces[1].Payload.(NonceIncremented).NewNonce)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestMultiDeliversToEverySink(t *testing.T) {
	var a, b Recorder
	boom := errors.New("boom")
	sink := Multi(&a, failingSink{err: boom}, &b)

	err := sink.Emit(context.Background(), NewSettingsUpdated("protocolFee", "250"))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)

	assert.NoError(t, Multi(&a).Emit(context.Background(), NewSettingsUpdated("x", "y")))
	assert.NoError(t, Discard.Emit(context.Background(), Event{}))
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogSink(logrus.NewEntry(logger))

	require.NoError(t, sink.Emit(context.Background(), NewOrderCancelled(maker, digest)))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "event emitted", entry.Message)
	assert.Equal(t, TypeOrderCancelled, entry.Data["event"])
	assert.Equal(t, "events", entry.Data["component"])
	assert.Equal(t, digest.Hex(), entry.Data["key"])
}

func TestEventJSON(t *testing.T) {
	ev := NewTrade(TypeTakerBid, Trade{
		Buyer:         maker,
		Digest:        digest,
		TokenID:       big.NewInt(7),
		Amount:        big.NewInt(1),
		Price:         big.NewInt(1000),
		Fee:           big.NewInt(25),
		RoyaltyAmount: big.NewInt(50),
	})
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "TakerBid", decoded["type"])
	assert.NotContains(t, decoded, "Key")

	payload := decoded["payload"].(map[string]interface{})
	assert.Equal(t, float64(1000), payload["price"])
	assert.Equal(t, strings.ToLower(maker.Hex()), strings.ToLower(payload["buyer"].(string)))
}

func TestKafkaMessage(t *testing.T) {
	ev := NewRoyaltyFeeUpdated(maker, maker, maker, 300)
	msg, err := kafkaMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte(maker.Hex()), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, []byte("RoyaltyFeeUpdated"), msg.Headers[0].Value)
	assert.Contains(t, string(msg.Value), `"fee":300`)

	_, err = kafkaMessage(Event{Type: "bad", Payload: make(chan int)})
	assert.Error(t, err)
}

func feedServer(t *testing.T) (*httptest.Server, <-chan []byte) {
	received := make(chan []byte, 16)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func TestWSSink(t *testing.T) {
	srv, received := feedServer(t)

	sink := NewWSSink(WSConfig{
		Endpoint:          "ws" + strings.TrimPrefix(srv.URL, "http"),
		HeartbeatInterval: time.Hour,
	})
	assert.ErrorIs(t, sink.Emit(context.Background(), NewNonceIncremented(maker, 1)), ErrNotConnected)

	require.NoError(t, sink.Connect(context.Background()))
	assert.True(t, sink.IsConnected())

	require.NoError(t, sink.Emit(context.Background(), NewNonceIncremented(maker, 1)))

	select {
	case data := <-received:
		var ev struct {
			Type    Type             `json:"type"`
			Payload NonceIncremented `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, TypeNonceIncremented, ev.Type)
		assert.Equal(t, maker, ev.Payload.Maker)
		assert.Equal(t, uint64(1), ev.Payload.NewNonce)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, sink.Close())
	assert.False(t, sink.IsConnected())
	assert.ErrorIs(t, sink.Emit(context.Background(), NewNonceIncremented(maker, 2)), ErrNotConnected)
}

func TestWSSinkBadEndpoint(t *testing.T) {
	sink := NewWSSink(WSConfig{Endpoint: "ws://127.0.0.1:1"})
	assert.Error(t, sink.Connect(context.Background()))
	assert.False(t, sink.IsConnected())
}
