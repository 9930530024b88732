// Package discovery implements the in-process participant registry
// (DESIGN.md component C14) that the original's discovery_server.rs and
// participant.rs realize over message_io/TCP sockets. Real network
// transport is out of this module's scope (spec.md's Non-goals; no
// transport/framing library appears anywhere in the retrieved example
// pack), so the full REGISTER/UNREGISTER/PARTICIPANT_LIST/
// PARTICIPANT_ADDED/PARTICIPANT_REMOVED/PROTOCOL_START/
// PROTOCOL_EXECUTE_STEP message set spec.md §6 names is exchanged over
// channels within a single process instead of sockets: the same
// information, the same seven messages, no wire framing.
package discovery

import (
	"context"
	"fmt"
	"sync"
)

// Message is one event delivered to a registered participant.
type Message struct {
	Kind         MessageKind
	Participants []string // populated for KindParticipantList
	Added        string   // populated for KindParticipantAdded
	Removed      string   // populated for KindParticipantRemoved

	// ProtocolExecuteStep fields (spec.md §6:
	// PROTOCOL_EXECUTE_STEP(source_id, step_no, payload, job_id)),
	// populated only when Kind is KindProtocolExecuteStep.
	FromID  string
	StepNo  int
	JobID   uint64
	Payload []byte
}

// MessageKind distinguishes the five notifications the original exchanges
// over the wire from DiscoveryServer or from one participant to another
// (RegisterParticipant/UnregisterParticipant are modeled as the Register/
// Unregister methods below, not as Message values).
type MessageKind int

const (
	KindParticipantList MessageKind = iota
	KindParticipantAdded
	KindParticipantRemoved
	KindProtocolStart
	KindProtocolExecuteStep
)

// Registry tracks which of the N expected participants have checked in,
// fans out notifications to everyone already registered (mirroring
// DiscoveryServer.register/unregister in discovery_server.rs), and gives
// each participant a context that Unregister cancels, so a peer
// disconnect can cancel that peer's in-flight jobs (spec.md §5) without
// touching anyone else's.
type Registry struct {
	mu           sync.Mutex
	expected     int
	participants []string
	listeners    map[string]chan Message
	contexts     map[string]context.Context
	cancels      map[string]context.CancelFunc
	ready        chan struct{}
	readyOnce    sync.Once
}

// NewRegistry constructs a registry expecting exactly n participants.
func NewRegistry(n int) *Registry {
	return &Registry{
		expected:  n,
		listeners: make(map[string]chan Message),
		contexts:  make(map[string]context.Context),
		cancels:   make(map[string]context.CancelFunc),
		ready:     make(chan struct{}),
	}
}

// Register adds a named participant and returns a channel on which it
// receives the current participant list immediately, then one
// KindParticipantAdded notification per subsequently registered peer, and
// a KindProtocolStart notification to every participant once the
// registry reaches its expected count, matching DiscoveryServer.register's
// behavior once self.participants.len() == self.params.n.
func (r *Registry) Register(name string) (<-chan Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.listeners[name]; exists {
		return nil, fmt.Errorf("discovery: participant %q already registered", name)
	}
	if len(r.participants) >= r.expected {
		return nil, fmt.Errorf("discovery: registry already has its expected %d participants", r.expected)
	}

	ch := make(chan Message, 2*r.expected+2)
	ch <- Message{Kind: KindParticipantList, Participants: append([]string(nil), r.participants...)}

	for _, peer := range r.participants {
		r.listeners[peer] <- Message{Kind: KindParticipantAdded, Added: name}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.participants = append(r.participants, name)
	r.listeners[name] = ch
	r.contexts[name] = ctx
	r.cancels[name] = cancel

	if len(r.participants) == r.expected {
		for _, peer := range r.participants {
			r.listeners[peer] <- Message{Kind: KindProtocolStart}
		}
		r.readyOnce.Do(func() { close(r.ready) })
	}
	return ch, nil
}

// Unregister removes a participant, notifies the remaining participants
// with KindParticipantRemoved, and cancels the departing participant's
// context, per DiscoveryServer.unregister's ParticipantNotificationRemoved
// broadcast.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[name]; ok {
		cancel()
		delete(r.cancels, name)
	}
	delete(r.contexts, name)
	delete(r.listeners, name)
	for i, p := range r.participants {
		if p == name {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}

	for _, peer := range r.participants {
		if ch, ok := r.listeners[peer]; ok {
			ch <- Message{Kind: KindParticipantRemoved, Removed: name}
		}
	}
}

// Context returns the context a registered participant was given at
// Register, canceled once Unregister removes it. A worker.Job tagged with
// this context (worker.Job.PeerCtx) is aborted at its next round barrier
// when that participant disconnects, satisfying spec.md §5's "on peer
// disconnect the discovery layer cancels all jobs" without canceling jobs
// belonging to any other peer.
func (r *Registry) Context(name string) (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[name]
	return ctx, ok
}

// SendExecuteStep delivers one round's step payload for one job from one
// participant to another, mirroring participant.rs's
// send_result_to_everyone/handle_protocol_execute_step pair and spec.md
// §6's PROTOCOL_EXECUTE_STEP(source_id, step_no, payload, job_id).
func (r *Registry) SendExecuteStep(from, to string, stepNo int, jobID uint64, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.listeners[to]
	if !ok {
		return fmt.Errorf("discovery: send execute step: unknown participant %q", to)
	}
	ch <- Message{Kind: KindProtocolExecuteStep, FromID: from, StepNo: stepNo, JobID: jobID, Payload: payload}
	return nil
}

// Ready is closed once every expected participant has registered, the
// signal the original uses to kick off preprocessing and decryption.
func (r *Registry) Ready() <-chan struct{} {
	return r.ready
}

// Participants returns a snapshot of the currently registered names.
func (r *Registry) Participants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.participants...)
}
