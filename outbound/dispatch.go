package outbound

import "context"

// MaxMessageLen is the network's ceiling on a single send, in bytes.
const MaxMessageLen = 500

// Transport delivers one bounded-length frame to the network. The dispatcher
// guarantees text handed to either method is at most MaxMessageLen bytes.
type Transport interface {
	Send(ctx context.Context, channel, text string) error
	SendDirect(ctx context.Context, userID, text string) error
}

// Dispatcher splits oversized replies and feeds each chunk through the
// governor before it reaches the transport. It holds no state between calls;
// ordering within one message comes from sending chunks strictly one at a
// time.
type Dispatcher struct {
	gov       *Governor
	transport Transport
	maxLen    int
}

func NewDispatcher(gov *Governor, t Transport) *Dispatcher {
	return &Dispatcher{gov: gov, transport: t, maxLen: MaxMessageLen}
}

// Say delivers text to a channel, one governed send per chunk, in order.
// The first transport error aborts the remaining chunks; earlier chunks stay
// delivered and the caller decides on any resend policy.
func (d *Dispatcher) Say(ctx context.Context, channel, text string) error {
	return d.each(ctx, text, func(chunk string) error {
		return d.transport.Send(ctx, channel, chunk)
	})
}

// Whisper is Say over the direct-message surface.
func (d *Dispatcher) Whisper(ctx context.Context, userID, text string) error {
	return d.each(ctx, text, func(chunk string) error {
		return d.transport.SendDirect(ctx, userID, chunk)
	})
}

func (d *Dispatcher) each(ctx context.Context, text string, send func(string) error) error {
	for _, chunk := range Split(text, d.maxLen) {
		if err := d.gov.Wait(ctx); err != nil {
			return err
		}
		if err := send(chunk); err != nil {
			return err
		}
	}
	return nil
}
