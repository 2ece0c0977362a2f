package baseot

import (
	"crypto/rand"
	"testing"
)

func randMsg(t *testing.T) [16]byte {
	t.Helper()
	var m [16]byte
	if _, err := rand.Read(m[:]); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestTransferRecoversChosenMessageOnly(t *testing.T) {
	for _, choice := range []bool{false, true} {
		sender, err := NewSender()
		if err != nil {
			t.Fatal(err)
		}
		receiver, init, err := NewReceiver(sender.PubKey(), choice)
		if err != nil {
			t.Fatal(err)
		}

		m0, m1 := randMsg(t), randMsg(t)
		reply, err := sender.Send(init, m0, m1)
		if err != nil {
			t.Fatal(err)
		}

		got := receiver.Recv(reply)
		want := m0
		if choice {
			want = m1
		}
		if got != want {
			t.Fatalf("choice=%v: recovered wrong message", choice)
		}
	}
}

func TestMalformedInitIsRejected(t *testing.T) {
	sender, err := NewSender()
	if err != nil {
		t.Fatal(err)
	}
	var bad Init
	for i := range bad.U {
		bad.U[i] = 0xFF
	}
	if _, err := sender.Send(bad, randMsg(t), randMsg(t)); err == nil {
		t.Fatalf("expected error for a non-canonical group element")
	}
}
