package objcmsg

import (
	"fmt"
	"unsafe"

	"github.com/zephyrtronium/contains"
	"go.uber.org/zap"
)

// Status is the execution state of a Message in a chain.
type Status int

const (
	// Ready messages have not been sent.
	Ready Status = iota
	// Skipped messages are passed over, and the chain continues.
	Skipped
	// Cancelled messages stop the chain before they are sent.
	Cancelled
	// Completed messages have been sent. The send may have failed.
	Completed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Message is one send in a chain of sends. Messages in a chain run strictly in
// order. A message with a Nil receiver is sent to the result of the message
// before it.
type Message struct {
	// Receiver is the object to send to, or Nil to use the result of Prev.
	Receiver Handle
	// Selector is the selector to send.
	Selector Handle
	// Args are the arguments to the message.
	Args []interface{}

	// CoerceInput and CoerceOutput request conversion of arguments and of
	// the result. Only the last message in a chain has its result converted,
	// so that earlier results remain usable as receivers.
	CoerceInput  bool
	CoerceOutput bool
	// InputWasCoerced and OutputWasCoerced record what conversion actually
	// happened.
	InputWasCoerced  bool
	OutputWasCoerced bool

	// Result is the result of the send.
	Result interface{}
	// Err is the error from the send, if any.
	Err error
	// Status is the execution state. Before may set it to Skipped or
	// Cancelled.
	Status Status

	// Next and Prev link the chain. SendChain sets them.
	Next, Prev *Message

	// Before, if not nil, is called before the message is sent, after its
	// receiver is resolved. After, if not nil, is called once it completes.
	Before func(*Message)
	After  func(*Message)
}

// NewMessage creates a message ready to send.
func NewMessage(recv, sel Handle, args ...interface{}) *Message {
	return &Message{Receiver: recv, Selector: sel, Args: args, CoerceInput: true, CoerceOutput: true}
}

// uniqueID returns the message's address.
func (m *Message) uniqueID() uintptr {
	return uintptr(unsafe.Pointer(m))
}

// Link sets the Next and Prev fields of msgs to form a chain in order. It
// returns an error if a message appears more than once.
func Link(msgs ...*Message) error {
	set := contains.Set{}
	for i, m := range msgs {
		if !set.Add(m.uniqueID()) {
			return fmt.Errorf("objcmsg: message %d appears earlier in the chain", i)
		}
	}
	for i, m := range msgs {
		m.Prev, m.Next = nil, nil
		if i > 0 {
			m.Prev = msgs[i-1]
		}
		if i < len(msgs)-1 {
			m.Next = msgs[i+1]
		}
	}
	return nil
}

// SendChain sends each message in turn. Errors are recorded in the message
// that caused them and do not stop the chain; a Cancelled message does. The
// result and error are those of the last message.
func (c *Client) SendChain(msgs ...*Message) (interface{}, error) {
	if len(msgs) == 0 {
		return nil, ErrEmptyChain
	}
	if err := Link(msgs...); err != nil {
		return nil, err
	}
	last := msgs[len(msgs)-1]
	for m := msgs[0]; m != nil; m = m.Next {
		if m.Receiver == Nil && m.Prev != nil {
			if m.Prev.Err != nil {
				m.Err = fmt.Errorf("objcmsg: receiver unavailable: %w", m.Prev.Err)
				m.Status = Completed
				continue
			}
			h, ok := handleOf(m.Prev.Result)
			if !ok {
				m.Err = &UnsupportedConversionError{Value: m.Prev.Result}
				m.Status = Completed
				continue
			}
			m.Receiver = h
		}
		if m.Before != nil {
			m.Before(m)
		}
		if m.Status == Skipped {
			continue
		}
		if m.Status == Cancelled {
			break
		}
		m.InputWasCoerced = m.CoerceInput && len(m.Args) > 0
		m.OutputWasCoerced = m.CoerceOutput && m == last
		m.Result, m.Err = c.send(m.Receiver, m.Selector, m.CoerceInput, m.OutputWasCoerced, m.Args)
		if m.Err != nil {
			Logger().Warn("chained message failed", zap.String("selector", c.b.rt.SelectorName(m.Selector)), zap.Error(m.Err))
		}
		m.Status = Completed
		if m.After != nil {
			m.After(m)
		}
	}
	return last.Result, last.Err
}

// BuildChain builds a message chain from a flat parameter list. Each message
// is a receiver, a selector, and its arguments, ending at a nil parameter or
// the end of the list. A receiver is a class name, a Handle, a Peerable, or
// "_" to use the result of the previous message. A selector is a name or a
// Handle. The messages take their conversion settings from c.
func (c *Client) BuildChain(params ...interface{}) ([]*Message, error) {
	var msgs []*Message
	for i := 0; i < len(params); i++ {
		m := &Message{CoerceInput: c.coerceIn, CoerceOutput: c.coerceOut}
		if s, ok := params[i].(string); ok && s == "_" {
			m.Receiver = Nil
		} else {
			r, err := c.b.receiver(params[i])
			if err != nil {
				return nil, fmt.Errorf("objcmsg: receiver of message %d: %w", len(msgs), err)
			}
			m.Receiver = r
		}
		i++
		if i >= len(params) {
			return nil, fmt.Errorf("objcmsg: message %d has no selector", len(msgs))
		}
		sel, err := c.b.selector(params[i])
		if err != nil {
			return nil, fmt.Errorf("objcmsg: selector of message %d: %w", len(msgs), err)
		}
		m.Selector = sel
		for i++; i < len(params) && params[i] != nil; i++ {
			m.Args = append(m.Args, params[i])
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
