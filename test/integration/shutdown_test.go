package integration

import (
	"testing"
	"time"

	"github.com/driftchat/driftchat/test/testhelpers"
)

func TestGracefulShutdownClosesClients(t *testing.T) {
	relay := testhelpers.StartRelay(t)

	conn := testhelpers.ConnectWebSocket(t, relay)
	testhelpers.SetUsername(t, conn, "alice")

	if err := relay.Hub.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Hub shutdown failed: %v", err)
	}

	// The server tore the connection down; the next read must fail.
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected read to fail after shutdown")
	}
}

func TestShutdownWithNoClientsCompletesQuickly(t *testing.T) {
	relay := testhelpers.StartRelay(t)

	start := time.Now()
	if err := relay.Hub.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Hub shutdown failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took too long: %v", elapsed)
	}
}
