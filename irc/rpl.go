package irc

// IRC replies.
const (
	rplWelcome = "001" // :Welcome message

	errNicknameinuse = "433" // <nick> :Nickname in use
)
