package core

import (
	"errors"
	"testing"
	"time"
)

// staticVerifier resolves fixed tokens to identities.
type staticVerifier map[string]*Identity

func (v staticVerifier) VerifyCredential(token string) (*Identity, error) {
	id, ok := v[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return id, nil
}

func testVerifier() staticVerifier {
	return staticVerifier{
		"t-alice": {UserID: 1, Username: "alice"},
		"t-bob":   {UserID: 2, Username: "bob"},
		"t-carol": {UserID: 3, Username: "carol"},
	}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func authenticate(t *testing.T, c *Client, token string) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandAuthenticate, Token: token}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Identity() != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client %s did not authenticate in time", c.ID)
}
