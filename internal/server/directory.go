// Package server keeps the shared registry of authenticated sessions and
// groups in the Directory type. Every lookup, mutation and fan-out send runs
// under a single mutex.
package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/Tyrowin/gochat/internal/config"
	"github.com/Tyrowin/gochat/internal/logger"
	"github.com/Tyrowin/gochat/internal/metrics"
	"github.com/Tyrowin/gochat/internal/protocol"
)

var (
	// ErrDuplicateLogin is returned by Register when the username is already
	// registered and the directory rejects duplicates.
	ErrDuplicateLogin = errors.New("username already connected")

	// ErrAlreadyRegistered is returned when the same peer registers twice.
	ErrAlreadyRegistered = errors.New("peer already registered")
)

// Peer is anything the directory can deliver text to. Implementations must be
// comparable; sessions use their pointer identity.
type Peer interface {
	Send(msg string) error
}

// Directory is the shared, mutable server state: the registered sessions,
// indexed both by peer and by username, and the group membership table.
//
// byPeer and byName are exact inverses at every point where the lock is free.
// Groups persist once created, even with no members.
type Directory struct {
	mu     sync.Mutex
	byPeer map[Peer]string
	byName map[string]Peer
	groups map[string]map[Peer]struct{}

	overwrite bool
	keepStale bool
	metrics   *metrics.Chat
}

// DirectoryOption configures a Directory.
type DirectoryOption func(d *Directory)

// WithDuplicateLogin selects the duplicate-login policy (config.DuplicateLoginReject
// or config.DuplicateLoginOverwrite).
func WithDuplicateLogin(policy string) DirectoryOption {
	return func(d *Directory) {
		d.overwrite = policy == config.DuplicateLoginOverwrite
	}
}

// WithStaleGroupMembers keeps a departed peer in every group it belonged to.
func WithStaleGroupMembers(keep bool) DirectoryOption {
	return func(d *Directory) {
		d.keepStale = keep
	}
}

// WithDirectoryMetrics attaches collectors. A nil value disables metrics.
func WithDirectoryMetrics(m *metrics.Chat) DirectoryOption {
	return func(d *Directory) {
		d.metrics = m
	}
}

// NewDirectory creates an empty directory.
func NewDirectory(options ...DirectoryOption) *Directory {
	d := &Directory{
		byPeer: make(map[Peer]string),
		byName: make(map[string]Peer),
		groups: make(map[string]map[Peer]struct{}),
	}
	for _, option := range options {
		if option != nil {
			option(d)
		}
	}
	return d
}

// send delivers msg and reports success. Failures are left for the peer's own
// read loop to discover.
func (d *Directory) send(p Peer, msg string) bool {
	if err := p.Send(msg); err != nil {
		logger.Debug("Send to peer failed", "user", d.byPeer[p], "error", err)
		return false
	}
	return true
}

// Register adds p under name, sends it the welcome line and announces the
// arrival to every other registered peer, all in one critical section.
func (d *Directory) Register(p Peer, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byPeer[p]; ok {
		return ErrAlreadyRegistered
	}
	if existing, ok := d.byName[name]; ok {
		if !d.overwrite {
			return ErrDuplicateLogin
		}
		// The previous session stays connected but is no longer addressable.
		logger.Warn("Duplicate login replaces registered session", "user", name)
		delete(d.byPeer, existing)
		if !d.keepStale {
			d.pruneLocked(existing)
		}
	}

	d.byPeer[p] = name
	d.byName[name] = p
	d.metrics.SetActiveSessions(len(d.byPeer))

	d.send(p, protocol.Welcome)

	announcement := protocol.Joined(name)
	delivered := 0
	for other := range d.byPeer {
		if other != p && d.send(other, announcement) {
			delivered++
		}
	}
	d.metrics.Delivered("announce", delivered)
	return nil
}

// Deregister removes p from both session indices and, unless stale members
// are kept, from every group. It returns the name p was registered under.
func (d *Directory) Deregister(p Peer) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.keepStale {
		d.pruneLocked(p)
	}

	name, ok := d.byPeer[p]
	if !ok {
		return "", false
	}
	delete(d.byPeer, p)
	if d.byName[name] == p {
		delete(d.byName, name)
	}
	d.metrics.SetActiveSessions(len(d.byPeer))
	return name, true
}

// activeLocked reports whether p is registered. A peer evicted by an
// overwriting login is told so instead.
func (d *Directory) activeLocked(p Peer) bool {
	if _, ok := d.byPeer[p]; ok {
		return true
	}
	d.send(p, protocol.SessionReplaced)
	return false
}

func (d *Directory) pruneLocked(p Peer) {
	for _, members := range d.groups {
		delete(members, p)
	}
}

// AnnounceLeave tells every registered peer that name has left.
func (d *Directory) AnnounceLeave(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	announcement := protocol.Left(name)
	delivered := 0
	for p := range d.byPeer {
		if d.send(p, announcement) {
			delivered++
		}
	}
	d.metrics.Delivered("announce", delivered)
}

// Broadcast acknowledges text to sender and delivers it to every other
// registered peer exactly once.
func (d *Directory) Broadcast(sender Peer, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.activeLocked(sender) {
		return
	}

	d.send(sender, protocol.BroadcastAck(text))

	msg := protocol.BroadcastDelivery(text)
	delivered := 0
	for p := range d.byPeer {
		if p != sender && d.send(p, msg) {
			delivered++
		}
	}
	d.metrics.Delivered("broadcast", delivered)
}

// DirectMessage delivers text from senderName to the peer registered as
// recipient. The sender hears back only when the recipient is not connected.
func (d *Directory) DirectMessage(sender Peer, senderName, recipient, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.activeLocked(sender) {
		return
	}

	target, ok := d.byName[recipient]
	if !ok {
		d.send(sender, protocol.NotConnected(recipient))
		return
	}
	if d.send(target, protocol.DirectDelivery(senderName, text)) {
		d.metrics.Delivered("direct", 1)
	}
}

// CreateGroup creates group with requester as its only member.
func (d *Directory) CreateGroup(requester Peer, group string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.activeLocked(requester) {
		return
	}

	if _, ok := d.groups[group]; ok {
		d.send(requester, protocol.GroupExists(group))
		return
	}
	d.groups[group] = map[Peer]struct{}{requester: {}}
	d.metrics.SetGroups(len(d.groups))
	d.send(requester, protocol.GroupCreated(group))
}

// JoinGroup adds requester to an existing group. Joining twice is not an error.
func (d *Directory) JoinGroup(requester Peer, group string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.activeLocked(requester) {
		return
	}

	members, ok := d.groups[group]
	if !ok {
		d.send(requester, protocol.GroupMissing(group))
		return
	}
	members[requester] = struct{}{}
	d.send(requester, protocol.GroupJoined(group))
}

// LeaveGroup removes requester from group. A missing group and a missing
// membership produce the same not-a-member reply.
func (d *Directory) LeaveGroup(requester Peer, group string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.activeLocked(requester) {
		return
	}

	members, ok := d.groups[group]
	if !ok {
		d.send(requester, protocol.NotMember(group))
		return
	}
	if _, member := members[requester]; !member {
		d.send(requester, protocol.NotMember(group))
		return
	}
	delete(members, requester)
	d.send(requester, protocol.GroupLeft(group))
}

// GroupMessage delivers text to every member of group except sender, who
// must be a member.
func (d *Directory) GroupMessage(sender Peer, group, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.activeLocked(sender) {
		return
	}

	members, ok := d.groups[group]
	if !ok {
		d.send(sender, protocol.NotMember(group))
		return
	}
	if _, member := members[sender]; !member {
		d.send(sender, protocol.NotMember(group))
		return
	}

	msg := protocol.GroupDelivery(group, text)
	delivered := 0
	for p := range members {
		if p != sender && d.send(p, msg) {
			delivered++
		}
	}
	d.metrics.Delivered("group", delivered)
}

// Lookup returns the peer registered under name.
func (d *Directory) Lookup(name string) (Peer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byName[name]
	return p, ok
}

// NameOf returns the username p is registered under.
func (d *Directory) NameOf(p Peer) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.byPeer[p]
	return name, ok
}

// Len returns the number of registered peers.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byPeer)
}

// Usernames returns the registered usernames in sorted order.
func (d *Directory) Usernames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups returns the existing group names in sorted order.
func (d *Directory) Groups() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.groups))
	for name := range d.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMember reports whether p belongs to group.
func (d *Directory) IsMember(group string, p Peer) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.groups[group][p]
	return ok
}

// MemberCount returns the number of members of group and whether it exists.
func (d *Directory) MemberCount(group string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.groups[group]
	return len(members), ok
}
