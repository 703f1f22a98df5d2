package crypt

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := RandomKey()
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(key)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := c.SealString("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.OpenString(frame)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hunter2" {
		t.Fatalf("got %q, want hunter2", got)
	}
}

func TestSealProducesFreshNoncePerCall(t *testing.T) {
	key, _ := RandomKey()
	c, _ := New(key)
	a, _ := c.SealString("same plaintext")
	b, _ := c.SealString("same plaintext")
	if string(a) == string(b) {
		t.Fatal("two seals of the same plaintext must differ (fresh nonce per write)")
	}
}

func TestOpenRejectsTamperedFrame(t *testing.T) {
	key, _ := RandomKey()
	c, _ := New(key)
	frame, _ := c.SealString("secret")
	frame[len(frame)-1] ^= 0xFF
	if _, err := c.Open(frame); err == nil {
		t.Fatal("tampered frame must fail authentication")
	}
}

func TestNewRejectsWrongKeySize(t *testing.T) {
	if _, err := New(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short key")
	}
}
