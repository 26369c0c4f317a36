package telegram

import (
	"babelgram/sources/platform"
)

type TelegramConfig struct {
	Token          string
	Timeout        int
	AllowedUpdates []string
	UserLanguage   string
	WindowSize     int
}

func NewTelegramConfig() *TelegramConfig {
	return &TelegramConfig{
		Token:          platform.Get("TELEGRAM_BOT_TOKEN", ""),
		Timeout:        platform.GetAsInt("TELEGRAM_POLL_TIMEOUT", 30),
		AllowedUpdates: platform.GetAsSlice("TELEGRAM_ALLOWED_UPDATES", []string{"message", "edited_message"}),
		UserLanguage:   platform.Get("USER_LANGUAGE", "en"),
		WindowSize:     platform.GetAsInt("TELEGRAM_WINDOW_SIZE", 50),
	}
}
