package net

import (
	"errors"
	stdnet "net"
	"testing"
	"time"

	"armada/server/internal/proto"
)

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := stdnet.Pipe()
	ca := NewConn(a, time.Second)
	cb := NewConn(b, time.Second)
	t.Cleanup(func() {
		ca.Close()
		cb.Close()
	})
	return ca, cb
}

func TestSendReceiveRoundTrip(t *testing.T) {
	client, server := pipeConns(t)

	sent := proto.Event{
		Type:      proto.EventJoinRequest,
		SenderID:  proto.NoPlayer,
		Timestamp: 1700000000,
		Join:      &proto.JoinRequest{Name: "Admiral"},
	}
	go func() {
		client.SendEvent(sent)
	}()

	got, err := server.ReceiveEvent()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got.Type != sent.Type || got.Join == nil || got.Join.Name != "Admiral" {
		t.Fatalf("received %+v, want %+v", got, sent)
	}
}

func TestReceiveOnClosedPeerReportsDisconnect(t *testing.T) {
	client, server := pipeConns(t)
	client.Close()

	if _, err := server.ReceiveEvent(); err == nil {
		t.Fatal("receive on a closed peer must fail")
	}
}

func TestPartialFrameIsFatal(t *testing.T) {
	a, b := stdnet.Pipe()
	server := NewConn(b, time.Second)
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := server.ReceiveEvent()
		errCh <- err
	}()

	// Half a frame, then the peer dies.
	frame, err := proto.EncodeEvent(proto.Event{
		Type: proto.EventJoinRequest,
		Join: &proto.JoinRequest{Name: "Ghost"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := a.Write(frame[:proto.FrameSize/2]); err != nil {
		t.Fatalf("write half frame: %v", err)
	}
	a.Close()

	if err := <-errCh; err == nil {
		t.Fatal("partial frame must be a fatal transport error")
	}
}

func TestPollReportsNoData(t *testing.T) {
	_, server := pipeConns(t)

	if _, err := server.Poll(); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestPollPicksUpWaitingFrame(t *testing.T) {
	client, server := pipeConns(t)

	go func() {
		client.SendEvent(proto.Event{
			Type:   proto.EventUserAction,
			Action: &proto.UserAction{PlayerID: 1, Action: proto.ActionEndTurn},
		})
	}()

	var got proto.Event
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err = server.Poll()
		if !errors.Is(err, ErrNoData) {
			break
		}
	}
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got.Type != proto.EventUserAction || got.Action == nil || got.Action.Action != proto.ActionEndTurn {
		t.Fatalf("polled %+v, want the end-turn action", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	client, _ := pipeConns(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
