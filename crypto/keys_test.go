package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(TunePrefix)) {
		t.Fatalf("unexpected prefix: %s", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), addr.Bytes()) {
		t.Fatalf("round trip mismatch: %x vs %x", decoded.Bytes(), addr.Bytes())
	}
	if decoded.Prefix() != TunePrefix {
		t.Fatalf("prefix mismatch: %s", decoded.Prefix())
	}
}

func TestNotePrefixSurvivesRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[AddressLength-1] = 0x7F
	addr := MustNewAddress(NotePrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Prefix() != NotePrefix {
		t.Fatalf("prefix mismatch: %s", decoded.Prefix())
	}
}

func TestNewAddressRejectsBadLength(t *testing.T) {
	if _, err := NewAddress(TunePrefix, make([]byte, 19)); err == nil {
		t.Fatalf("short address accepted")
	}
	if _, err := NewAddress(TunePrefix, make([]byte, 21)); err == nil {
		t.Fatalf("long address accepted")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-a-bech32-string"); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestPrivateKeySerialization(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !bytes.Equal(restored.PubKey().Address().Bytes(), key.PubKey().Address().Bytes()) {
		t.Fatalf("restored key derives a different address")
	}
}
