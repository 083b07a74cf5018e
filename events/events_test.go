package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_DecodeInbound_Dispatches_On_Type(t *testing.T) {
	req := require.New(t)

	ev, err := DecodeInbound([]byte(`{"type":"message_send","payload":{"receiverId":"abc","body":"hi","kind":"text"}}`))
	req.NoError(err)
	send, ok := ev.(MessageSend)
	req.True(ok)
	req.Equal("abc", send.ReceiverID)
	req.Equal("hi", send.Body)

	ev, err = DecodeInbound([]byte(`{"type":"typing","payload":{"receiverId":"abc","typing":true}}`))
	req.NoError(err)
	typing, ok := ev.(Typing)
	req.True(ok)
	req.True(typing.Typing)

	ev, err = DecodeInbound([]byte(`{"type":"register","payload":{"participantId":"p1","tenantId":"t1"}}`))
	req.NoError(err)
	reg, ok := ev.(Register)
	req.True(ok)
	req.Equal("p1", reg.ParticipantID)
	req.Equal("t1", reg.TenantID)

	ev, err = DecodeInbound([]byte(`{"type":"mark_read","payload":{"senderId":"s1"}}`))
	req.NoError(err)
	mark, ok := ev.(MarkRead)
	req.True(ok)
	req.Equal("s1", mark.SenderID)

	ev, err = DecodeInbound([]byte(`{"type":"ping"}`))
	req.NoError(err)
	_, ok = ev.(Ping)
	req.True(ok)
}

func Test_DecodeInbound_Rejects_Unknown_And_Malformed(t *testing.T) {
	req := require.New(t)

	_, err := DecodeInbound([]byte(`{"type":"drop_tables","payload":{}}`))
	req.Error(err)

	_, err = DecodeInbound([]byte(`not json`))
	req.Error(err)

	_, err = DecodeInbound([]byte(`{"type":"typing","payload":"not an object"}`))
	req.Error(err)
}

func Test_Encode_Wraps_Payload_In_Envelope(t *testing.T) {
	req := require.New(t)

	frame, err := Encode(TypeReadReceipt, ReadReceipt{ReaderID: "r1", At: 42})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(frame, &env))
	req.Equal(TypeReadReceipt, env.Type)

	var receipt ReadReceipt
	req.NoError(json.Unmarshal(env.Payload, &receipt))
	req.Equal("r1", receipt.ReaderID)
	req.EqualValues(42, receipt.At)
}
