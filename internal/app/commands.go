package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/consultbot/core/buildinfo"
	coretelegram "github.com/m3rciful/consultbot/core/telegram"
	"github.com/m3rciful/consultbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/consultbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func registerCommands(reg *coretelegram.Registry, conv *Conversation) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     conv.Restart,
		Description: "Перезапустить бота и открыть главное меню",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     helpHandler(reg),
		Description: "Список команд",
	})
	reg.RegisterCommand("/version", commands.Command{
		Handler:     versionHandler,
		Description: "Информация о сборке",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func helpHandler(reg *coretelegram.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		var b strings.Builder
		b.WriteString("Доступные команды:\n")
		for _, cmd := range reg.ListCommands(true) {
			fmt.Fprintf(&b, "%s — %s\n", cmd.Text, cmd.Description)
		}
		b.WriteString("\nВ любой момент можно вернуться в главное меню кнопкой под сообщением.")
		return tghelpers.SendText(c, b.String())
	}
}

func versionHandler(c tele.Context) error {
	text := fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s",
		buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	return tghelpers.SendText(c, text)
}
