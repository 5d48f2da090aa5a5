package commands

import (
	"context"
	"reflect"
	"testing"
)

func reply(text string) Handler {
	return func(ctx context.Context, inv Invocation) (string, error) {
		return text, nil
	}
}

func TestRegisterLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("Ping", reply("pong"))

	h, ok := r.Lookup("ping")
	if !ok {
		t.Fatal("Lookup(ping) not found, names are case-insensitive")
	}
	got, err := h(context.Background(), Invocation{Command: "ping"})
	if err != nil || got != "pong" {
		t.Fatalf("handler returned (%q, %v), want (pong, nil)", got, err)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("ping", reply("old"))
	r.Register("ping", reply("new"))

	h, _ := r.Lookup("ping")
	if got, _ := h(context.Background(), Invocation{}); got != "new" {
		t.Fatalf("handler returned %q, want the replacement", got)
	}
	if len(r.Names()) != 1 {
		t.Fatalf("Names() = %v, want a single entry", r.Names())
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("ping", reply("pong"))
	r.Unregister("PING")

	if _, ok := r.Lookup("ping"); ok {
		t.Fatal("Lookup found a command after Unregister")
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"uptime", "commands", "ping"} {
		r.Register(name, reply(""))
	}
	want := []string{"commands", "ping", "uptime"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}
