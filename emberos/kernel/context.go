package kernel

// Context provides task-local access to kernel operations.
type Context struct {
	k      *Kernel
	taskID TaskID
}

// TaskID returns the current task ID.
func (c *Context) TaskID() TaskID { return c.taskID }

// RecvChan returns the inbound message channel for an endpoint capability.
func (c *Context) RecvChan(epCap Capability) (<-chan Message, bool) {
	if !epCap.valid() || !epCap.canRecv() {
		return nil, false
	}

	c.k.mu.Lock()
	if epCap.ep >= c.k.endpointCount {
		c.k.mu.Unlock()
		return nil, false
	}
	ch := c.k.endpoints[epCap.ep].ch
	c.k.mu.Unlock()
	if ch == nil {
		return nil, false
	}
	return ch, true
}

// Recv reads one message from the capability endpoint, blocking until a
// message arrives.
func (c *Context) Recv(epCap Capability) (Message, bool) {
	ch, ok := c.RecvChan(epCap)
	if !ok {
		return Message{}, false
	}
	msg, ok := <-ch
	return msg, ok
}

// TryRecv reads one message from the capability endpoint without blocking.
func (c *Context) TryRecv(epCap Capability) (Message, bool) {
	ch, ok := c.RecvChan(epCap)
	if !ok {
		return Message{}, false
	}
	select {
	case msg := <-ch:
		return msg, true
	default:
		return Message{}, false
	}
}

// Send sends a message to the capability endpoint.
func (c *Context) Send(toCap Capability, kind uint16, payload []byte) bool {
	return c.SendCap(toCap, kind, payload, Capability{})
}

// SendCap sends a message and transfers an optional capability.
func (c *Context) SendCap(toCap Capability, kind uint16, payload []byte, xfer Capability) bool {
	return c.SendResult(toCap, kind, payload, xfer) == SendOK
}

// SendResult sends a message and transfers an optional capability,
// reporting the detailed outcome.
func (c *Context) SendResult(toCap Capability, kind uint16, payload []byte, xfer Capability) SendResult {
	if !toCap.valid() {
		return SendErrInvalidCap
	}
	if !toCap.canSend() {
		return SendErrNoSendRight
	}
	return c.k.send(toCap, kind, payload, xfer)
}

// NewEndpoint allocates a new endpoint and returns a capability for it.
func (c *Context) NewEndpoint(rights Rights) Capability {
	if c.k == nil {
		return Capability{}
	}
	return c.k.NewEndpoint(rights)
}

// NowTick returns the last observed kernel tick.
func (c *Context) NowTick() uint64 {
	if c.k == nil {
		return 0
	}
	return c.k.nowTick()
}

// WaitTick blocks until the kernel tick advances past the provided value
// and returns the new tick.
func (c *Context) WaitTick(after uint64) uint64 {
	if c.k == nil {
		return 0
	}
	return c.k.waitTick(after)
}

// BlockOnTick blocks the task until the next kernel tick.
func (c *Context) BlockOnTick() {
	if c.k == nil {
		return
	}
	after := c.k.nowTick()
	_ = c.k.waitTick(after)
}
