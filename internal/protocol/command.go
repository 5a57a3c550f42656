package protocol

import "strings"

// Kind classifies a client line.
type Kind int

const (
	Unknown Kind = iota
	Broadcast
	DirectMessage
	CreateGroup
	JoinGroup
	LeaveGroup
	GroupMessage
	// MalformedDirectMessage is a /msg line without a message part.
	MalformedDirectMessage
	// MalformedGroupMessage is a /group_msg line without a message part.
	MalformedGroupMessage
)

func (k Kind) String() string {
	switch k {
	case Broadcast:
		return "broadcast"
	case DirectMessage:
		return "msg"
	case CreateGroup:
		return "create_group"
	case JoinGroup:
		return "join_group"
	case LeaveGroup:
		return "leave_group"
	case GroupMessage:
		return "group_msg"
	case MalformedDirectMessage:
		return "msg_malformed"
	case MalformedGroupMessage:
		return "group_msg_malformed"
	default:
		return "unknown"
	}
}

// Command is the parsed form of one client line. Target is the recipient
// username or the group name, Text the message body.
type Command struct {
	Kind   Kind
	Target string
	Text   string
}

const (
	prefixBroadcast   = "/broadcast "
	prefixMsg         = "/msg "
	prefixCreateGroup = "/create_group "
	prefixJoinGroup   = "/join_group "
	prefixLeaveGroup  = "/leave_group "
	prefixGroupMsg    = "/group_msg "
)

// Parse classifies one line. The line is trimmed first; prefixes are matched
// case-sensitively and each requires exactly one separating space.
func Parse(line string) Command {
	msg := Trim(line)

	switch {
	case strings.HasPrefix(msg, prefixBroadcast):
		return Command{Kind: Broadcast, Text: Trim(msg[len(prefixBroadcast):])}

	case strings.HasPrefix(msg, prefixMsg):
		target, text, ok := splitTarget(msg[len(prefixMsg):])
		if !ok {
			return Command{Kind: MalformedDirectMessage}
		}
		return Command{Kind: DirectMessage, Target: Trim(target), Text: Trim(text)}

	case strings.HasPrefix(msg, prefixCreateGroup):
		return Command{Kind: CreateGroup, Target: Trim(msg[len(prefixCreateGroup):])}

	case strings.HasPrefix(msg, prefixJoinGroup):
		return Command{Kind: JoinGroup, Target: Trim(msg[len(prefixJoinGroup):])}

	case strings.HasPrefix(msg, prefixLeaveGroup):
		return Command{Kind: LeaveGroup, Target: Trim(msg[len(prefixLeaveGroup):])}

	case strings.HasPrefix(msg, prefixGroupMsg):
		target, text, ok := splitTarget(msg[len(prefixGroupMsg):])
		if !ok {
			return Command{Kind: MalformedGroupMessage}
		}
		return Command{Kind: GroupMessage, Target: Trim(target), Text: Trim(text)}
	}

	return Command{Kind: Unknown}
}

// splitTarget cuts rest at its first space. The target may be empty when the
// prefix is followed by more than one space.
func splitTarget(rest string) (target, text string, ok bool) {
	return strings.Cut(rest, " ")
}

// Usage returns the reply for malformed commands and reports whether k is one.
func Usage(k Kind) (string, bool) {
	switch k {
	case MalformedDirectMessage:
		return DirectMessageUsage, true
	case MalformedGroupMessage:
		return GroupMessageUsage, true
	case Unknown:
		return UnknownCommand, true
	}
	return "", false
}
