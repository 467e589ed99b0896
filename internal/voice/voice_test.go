package voice

import (
	"errors"
	"testing"
)

type fakeConnection struct {
	speakingErr  error
	disconnected bool
}

func (f *fakeConnection) Speaking(b bool) error {
	return f.speakingErr
}

func (f *fakeConnection) Disconnect() error {
	f.disconnected = true
	return nil
}

func TestBeginSpeakingDisconnectsOnFailure(t *testing.T) {
	vc := &fakeConnection{speakingErr: errors.New("voice ws closed")}

	err := beginSpeaking(vc)
	if err == nil {
		t.Fatal("expected an error when Speaking fails")
	}
	if !vc.disconnected {
		t.Error("expected the connection to be disconnected after a speaking failure")
	}
}

func TestBeginSpeakingKeepsHealthyConnection(t *testing.T) {
	vc := &fakeConnection{}

	if err := beginSpeaking(vc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vc.disconnected {
		t.Error("healthy connection should not be disconnected")
	}
}
