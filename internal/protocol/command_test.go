package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"broadcast", "/broadcast hello all", Command{Kind: Broadcast, Text: "hello all"}},
		{"broadcast trims body", "/broadcast    spaced out  \r\n", Command{Kind: Broadcast, Text: "spaced out"}},
		{"broadcast without body is unknown", "/broadcast", Command{Kind: Unknown}},
		{"broadcast with only spaces is unknown", "/broadcast    ", Command{Kind: Unknown}},
		{"direct message", "/msg bob hey there", Command{Kind: DirectMessage, Target: "bob", Text: "hey there"}},
		{"direct message trims text", "/msg bob    hi  ", Command{Kind: DirectMessage, Target: "bob", Text: "hi"}},
		{"direct message without text", "/msg bob", Command{Kind: MalformedDirectMessage}},
		{"direct message double space", "/msg  bob hi", Command{Kind: DirectMessage, Target: "", Text: "bob hi"}},
		{"create group", "/create_group CS425", Command{Kind: CreateGroup, Target: "CS425"}},
		{"create group keeps inner spaces", "/create_group my group ", Command{Kind: CreateGroup, Target: "my group"}},
		{"join group", "/join_group CS425", Command{Kind: JoinGroup, Target: "CS425"}},
		{"leave group", "/leave_group CS425", Command{Kind: LeaveGroup, Target: "CS425"}},
		{"group message", "/group_msg CS425 hello world", Command{Kind: GroupMessage, Target: "CS425", Text: "hello world"}},
		{"group message without text", "/group_msg CS425", Command{Kind: MalformedGroupMessage}},
		{"prefix is case sensitive", "/Broadcast hi", Command{Kind: Unknown}},
		{"prefix needs a space", "/broadcasthi", Command{Kind: Unknown}},
		{"empty line", "", Command{Kind: Unknown}},
		{"plain text", "hello", Command{Kind: Unknown}},
		{"leading whitespace is trimmed", "  \t/join_group G", Command{Kind: JoinGroup, Target: "G"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}
}

func TestUsage(t *testing.T) {
	msg, ok := Usage(MalformedDirectMessage)
	assert.True(t, ok)
	assert.Equal(t, DirectMessageUsage, msg)

	msg, ok = Usage(MalformedGroupMessage)
	assert.True(t, ok)
	assert.Equal(t, GroupMessageUsage, msg)

	msg, ok = Usage(Unknown)
	assert.True(t, ok)
	assert.Equal(t, "Unknown command.\n", msg)

	_, ok = Usage(Broadcast)
	assert.False(t, ok)
}

func TestWireStrings(t *testing.T) {
	assert.Equal(t, "alice has joined the chat .\n", Joined("alice"))
	assert.Equal(t, "alice has left the chat .\n", Left("alice"))
	assert.Equal(t, "[ alice ]: hi\n", DirectDelivery("alice", "hi"))
	assert.Equal(t, "User carol is not connected.\n", NotConnected("carol"))
	assert.Equal(t, "Group CS425 created .\n", GroupCreated("CS425"))
	assert.Equal(t, "Group CS425 already exists.\n", GroupExists("CS425"))
	assert.Equal(t, "You joined the group CS425 .\n", GroupJoined("CS425"))
	assert.Equal(t, "Group CS425 does not exist.\n", GroupMissing("CS425"))
	assert.Equal(t, "You left the group CS425 .\n", GroupLeft("CS425"))
	assert.Equal(t, "You are not a member of the group CS425.\n", NotMember("CS425"))
	assert.Equal(t, "[ Group CS425 ]: hello\n", GroupDelivery("CS425", "hello"))
	assert.Equal(t, "You broadcasted: x\n", BroadcastAck("x"))
	assert.Equal(t, "Broadcast: x\n", BroadcastDelivery("x"))
	assert.Equal(t, "User alice is already connected.\n", AlreadyConnected("alice"))
	assert.Equal(t, "Your session was replaced by a newer login.\n", SessionReplaced)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "broadcast", Broadcast.String())
	assert.Equal(t, "group_msg", GroupMessage.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
