// Package dialog implements a nested, event-driven conversation engine for
// Telegram-style bots. A top-level menu machine owns interior states with
// per-event-kind handler bindings; self-contained child machines are mounted
// at parent states with an explicit exit-to-parent mapping. The package is
// transport-agnostic: outbound rendering goes through the narrow Transport
// interface, so the engine and flows can be tested without a live bot.
package dialog
