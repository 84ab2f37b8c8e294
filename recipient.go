package objcmsg

// Recipient is a Go value that receives Objective-C messages. Native code
// sees it as an object, its peer, whose unknown messages are forwarded to the
// handlers the Recipient lists in its Handlers method. Messages it has no
// handler for go to its parent, if it has one.
//
// Most recipients embed Base and implement only Handlers.
type Recipient interface {
	Peerable
	// SetPeer records the native object representing the recipient.
	SetPeer(Handle)
	// Parent returns the object that receives messages the recipient does not
	// handle, or Nil.
	Parent() Handle
	// Handlers adds the recipient's handlers to t. It is called once per
	// concrete type.
	Handlers(t *Table)
}

// Base provides the peer and parent of a Recipient. A Base must not be
// copied after it is registered, and its parent must not change while
// messages may be arriving.
type Base struct {
	peer   Handle
	parent Handle
}

// Peer returns the native object representing the recipient.
func (o *Base) Peer() Handle {
	return o.peer
}

// SetPeer sets the native object representing the recipient.
func (o *Base) SetPeer(h Handle) {
	o.peer = h
}

// Parent returns the object receiving unhandled messages.
func (o *Base) Parent() Handle {
	return o.parent
}

// SetParent sets the object receiving unhandled messages.
func (o *Base) SetParent(h Handle) {
	o.parent = h
}

// Handlers adds no handlers. A type embedding Base without its own Handlers
// method forwards everything to its parent.
func (o *Base) Handlers(t *Table) {}

// Init sets the parent to a new instance of the named class, created with
// alloc and init. It fails if there is no such class.
func (o *Base) Init(c *Client, class string) error {
	raw := c.Bridge().Raw()
	a, err := raw.SendPointer(class, "alloc")
	if err != nil {
		return err
	}
	p, err := raw.SendPointer(a, "init")
	if err != nil {
		return err
	}
	o.parent = p
	return nil
}

// binding delivers the messages of one registered recipient to the router.
type binding struct {
	router *Router
	obj    Recipient
}

func (b *binding) MethodSignatureForSelector(sel Handle) Handle {
	return b.router.MethodSignatureForSelector(b.obj, sel)
}

func (b *binding) ForwardInvocation(inv Handle) error {
	return b.router.ForwardInvocation(b.obj, inv)
}

func (b *binding) RespondsToSelector(sel Handle) bool {
	return b.router.RespondsToSelector(b.obj, sel)
}

// recipientOf returns the Go value behind an Inbound.
func recipientOf(in Inbound) interface{} {
	if b, ok := in.(*binding); ok {
		return b.obj
	}
	return in
}

// Register creates the peer of r, if it does not already have one, so that
// native code can send it messages. It returns the peer.
func (b *Bridge) Register(r Recipient) (Handle, error) {
	if p := r.Peer(); p != Nil {
		return p, nil
	}
	// Build the table now so that mistakes in Handlers surface here.
	if _, err := b.router.table(r); err != nil {
		return Nil, err
	}
	h, err := b.rt.RegisterRecipient(&binding{router: b.router, obj: r})
	if err != nil {
		return Nil, err
	}
	r.SetPeer(h)
	return h, nil
}

// NewObject registers r and sets its parent to a new instance of class, if
// class is not empty and r embeds Base.
func (c *Client) NewObject(r Recipient, class string) (Handle, error) {
	if class != "" {
		if o, ok := r.(interface{ Init(*Client, string) error }); ok {
			if err := o.Init(c, class); err != nil {
				return Nil, err
			}
		}
	}
	return c.b.Register(r)
}
