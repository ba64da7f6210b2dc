package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command registered with the Registry. Hidden
// commands stay out of /help and the Telegram command menu; AdminOnly
// ones are wrapped with the admin check at registration time.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
