package telegram

import (
	"net/http"

	"babelgram/sources/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func NewBotAPI(config *TelegramConfig, client *http.Client, log *tracing.Logger) *tgbotapi.BotAPI {
	bot, err := tgbotapi.NewBotAPIWithClient(config.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		log.F("Failed to create Telegram bot API", tracing.InnerError, err)
	}

	log.I("Telegram bot API initialized", "account", bot.Self.UserName)
	return bot
}
