// bus.go
package bus

import (
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of string tokens, e.g. T("power", "dev", "0", "value").
// Subscription patterns may contain the single-level and multi-level
// wildcard tokens configured on the bus.
type Topic []string

// T builds a topic from its tokens.
func T(parts ...string) Topic { return Topic(parts) }

func (t Topic) String() string { return strings.Join(t, "/") }

func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie nodes
// -----------------------------------------------------------------------------

// node holds subscription patterns.
type node struct {
	children map[string]*node
	subs     []*Subscription
}

// retNode holds retained messages under their concrete topics.
type retNode struct {
	children map[string]*retNode
	msg      *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu     sync.Mutex
	root   *node
	ret    *retNode
	qLen   int
	single string // single-level wildcard token
	multi  string // multi-level wildcard token
}

// NewBus creates a bus with the given subscription queue length and wildcard
// tokens. Empty wildcard arguments select "+" and "#".
func NewBus(queueLen int, single, multi string) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	if single == "" {
		single = "+"
	}
	if multi == "" {
		multi = "#"
	}
	return &Bus{
		root:   &node{},
		ret:    &retNode{},
		qLen:   queueLen,
		single: single,
		multi:  multi,
	}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to every subscription whose pattern matches the
// concrete topic, then stores or clears the retained copy. A nil payload on
// a retained publish clears the slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match(b.root, msg.Topic, msg)

	if msg.Retained {
		rn := b.ret
		for _, tok := range msg.Topic {
			if rn.children == nil {
				rn.children = make(map[string]*retNode)
			}
			child, ok := rn.children[tok]
			if !ok {
				child = &retNode{}
				rn.children[tok] = child
			}
			rn = child
		}
		if msg.Payload == nil {
			rn.msg = nil
		} else {
			rn.msg = msg
		}
	}
}

// match walks the pattern trie against a concrete topic. A multi-level
// wildcard child matches the remainder of the topic, including nothing.
func (b *Bus) match(n *node, rest Topic, msg *Message) {
	if mc, ok := n.children[b.multi]; ok {
		for _, sub := range mc.subs {
			deliver(sub, msg)
		}
	}
	if len(rest) == 0 {
		for _, sub := range n.subs {
			deliver(sub, msg)
		}
		return
	}
	if ec, ok := n.children[rest[0]]; ok {
		b.match(ec, rest[1:], msg)
	}
	if sc, ok := n.children[b.single]; ok {
		b.match(sc, rest[1:], msg)
	}
}

// deliver never blocks: a full queue drops its oldest message.
func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// addSubscription inserts a pattern and replays matching retained messages.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	b.replayRetained(b.ret, topic, sub)
}

// replayRetained delivers every retained message whose concrete topic
// matches the new subscription's pattern.
func (b *Bus) replayRetained(rn *retNode, pattern Topic, sub *Subscription) {
	if len(pattern) == 0 {
		if rn.msg != nil {
			deliver(sub, rn.msg)
		}
		return
	}
	switch tok := pattern[0]; tok {
	case b.multi:
		b.replaySubtree(rn, sub)
	case b.single:
		for _, child := range rn.children {
			b.replayRetained(child, pattern[1:], sub)
		}
	default:
		if child, ok := rn.children[tok]; ok {
			b.replayRetained(child, pattern[1:], sub)
		}
	}
}

func (b *Bus) replaySubtree(rn *retNode, sub *Subscription) {
	if rn.msg != nil {
		deliver(sub, rn.msg)
	}
	for _, child := range rn.children {
		b.replaySubtree(child, sub)
	}
}

// unsubscribe removes a subscription and prunes empty pattern nodes.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string // placeholder for future identity/auth
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}
