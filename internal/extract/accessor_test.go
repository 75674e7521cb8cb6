package extract

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadDocument_EmptyInput(t *testing.T) {
	a := NewAccessor(10 * 1024 * 1024)
	_, err := a.ReadDocument(nil)
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Errorf("Expected ErrUnreadableDocument for empty input, got %v", err)
	}
}

func TestReadDocument_OversizedInput(t *testing.T) {
	a := NewAccessor(16)
	_, err := a.ReadDocument(bytes.Repeat([]byte("x"), 32))
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Errorf("Expected ErrUnreadableDocument for oversized input, got %v", err)
	}
}

func TestReadDocument_NotAPDF(t *testing.T) {
	a := NewAccessor(10 * 1024 * 1024)

	inputs := [][]byte{
		[]byte("this is not a pdf"),
		[]byte("%PDF-1.7 truncated header with no body"),
		bytes.Repeat([]byte{0x00, 0xff}, 256),
	}
	for _, data := range inputs {
		if _, err := a.ReadDocument(data); !errors.Is(err, ErrUnreadableDocument) {
			t.Errorf("Expected ErrUnreadableDocument for %.20q, got %v", data, err)
		}
	}
}

func TestReadDocument_NoSizeLimit(t *testing.T) {
	// A zero limit disables the size check; the bytes still fail container
	// validation.
	a := NewAccessor(0)
	_, err := a.ReadDocument([]byte("junk"))
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Errorf("Expected ErrUnreadableDocument, got %v", err)
	}
}
