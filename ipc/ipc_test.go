package ipc

import (
	"bytes"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeHello, HelloMessage{Host: "table-1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteEnvelope(&buf, env); err != nil {
		t.Fatal(err)
	}
	if n := binary.LittleEndian.Uint32(buf.Bytes()); int(n) != buf.Len()-4 {
		t.Fatalf("length prefix %d, payload %d", n, buf.Len()-4)
	}
	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var hello HelloMessage
	if err := got.Decode(&hello); err != nil {
		t.Fatal(err)
	}
	if got.Type != TypeHello || hello.Host != "table-1" {
		t.Errorf("got %s %+v", got.Type, hello)
	}
}

func TestReadEnvelopeRejectsBadFrames(t *testing.T) {
	frame := func(length uint32, payload string) *bytes.Buffer {
		var b bytes.Buffer
		_ = binary.Write(&b, binary.LittleEndian, length)
		b.WriteString(payload)
		return &b
	}
	tests := []struct {
		name string
		in   *bytes.Buffer
		want string
	}{
		{"empty", frame(0, ""), "invalid message length"},
		{"oversized", frame(MaxFrame+1, ""), "invalid message length"},
		{"short", frame(10, "{}"), "read payload"},
		{"not json", frame(3, "abc"), "unmarshal envelope"},
		{"no type", frame(2, "{}"), "without type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadEnvelope(tc.in)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestConnectionDispatch(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := NewConnection(server, nil)
	c.RegisterHandler(TypeHello, func(env Envelope) (*Envelope, error) {
		var h HelloMessage
		if err := env.Decode(&h); err != nil {
			return nil, err
		}
		c.Host = h.Host
		ack, err := NewEnvelope(TypeAck, AckMessage{Status: "ok"})
		return &ack, err
	})
	done := make(chan struct{})
	go func() {
		c.ReadLoop()
		close(done)
	}()
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))

	send := func(msgType string, data any) Envelope {
		t.Helper()
		env, err := NewEnvelope(msgType, data)
		if err != nil {
			t.Fatal(err)
		}
		if err := WriteEnvelope(client, env); err != nil {
			t.Fatal(err)
		}
		reply, err := ReadEnvelope(client)
		if err != nil {
			t.Fatal(err)
		}
		return reply
	}

	if reply := send(TypeHello, HelloMessage{Host: "h"}); reply.Type != TypeAck {
		t.Errorf("hello reply = %s", reply.Type)
	}
	reply := send(TypeHello, "not an object")
	var em ErrorMessage
	if err := reply.Decode(&em); err != nil {
		t.Fatal(err)
	}
	if reply.Type != TypeError || em.Type != TypeHello {
		t.Errorf("bad request reply = %s %+v", reply.Type, em)
	}
	reply = send("train", map[string]string{"requestId": "r1"})
	if err := reply.Decode(&em); err != nil {
		t.Fatal(err)
	}
	if reply.Type != TypeError || em.Type != "train" {
		t.Errorf("unknown type reply = %s %+v", reply.Type, em)
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ReadLoop did not return after close")
	}
}
