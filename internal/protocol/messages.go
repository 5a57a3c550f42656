// Package protocol defines the GoChat line protocol: the fixed strings the
// server sends and the parser that classifies client lines into commands.
package protocol

import "strings"

// Fixed server strings. They are part of the wire contract and must not change.
const (
	LoginBanner    = "Connected to the server .\nEnter username : "
	PasswordPrompt = "Enter password : "
	Welcome        = "Welcome to the chat server !\n"
	AuthFailed     = "Authentication failed .\n"
	UnknownCommand = "Unknown command.\n"

	// SessionReplaced answers every command from a session whose username
	// was taken over by a newer login.
	SessionReplaced = "Your session was replaced by a newer login.\n"

	DirectMessageUsage = "Invalid format. Use /msg <username> <message>\n"
	GroupMessageUsage  = "Invalid format. Use /group_msg <group_name> <message>\n"
)

// trimCutset matches the characters stripped from both ends of every line.
const trimCutset = " \n\r\t"

// Trim removes surrounding spaces, tabs and line terminators.
func Trim(s string) string {
	return strings.Trim(s, trimCutset)
}

func Joined(user string) string { return user + " has joined the chat .\n" }

func Left(user string) string { return user + " has left the chat .\n" }

// AlreadyConnected is sent instead of Welcome when a duplicate login is rejected.
func AlreadyConnected(user string) string { return "User " + user + " is already connected.\n" }

func BroadcastAck(text string) string { return "You broadcasted: " + text + "\n" }

func BroadcastDelivery(text string) string { return "Broadcast: " + text + "\n" }

// DirectDelivery formats a private message as the recipient sees it.
func DirectDelivery(sender, text string) string { return "[ " + sender + " ]: " + text + "\n" }

func NotConnected(user string) string { return "User " + user + " is not connected.\n" }

func GroupCreated(group string) string { return "Group " + group + " created .\n" }

func GroupExists(group string) string { return "Group " + group + " already exists.\n" }

func GroupJoined(group string) string { return "You joined the group " + group + " .\n" }

func GroupMissing(group string) string { return "Group " + group + " does not exist.\n" }

func GroupLeft(group string) string { return "You left the group " + group + " .\n" }

func NotMember(group string) string { return "You are not a member of the group " + group + ".\n" }

func GroupDelivery(group, text string) string { return "[ Group " + group + " ]: " + text + "\n" }
