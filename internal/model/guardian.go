package model

import (
	"strconv"
	"time"
)

// Схемы адресов доставки: транспорт принимает только свою
const (
	SchemeTelegram = "tg:"
	SchemePhone    = "tel:"
)

// Guardian опекун (родитель), получающий напоминания о прививках
type Guardian struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	TelegramChatID int64     `json:"telegram_chat_id"` // 0 = не подключен
	CreatedAt      time.Time `json:"created_at"`

	// Заполняется при выборке опекунов вместе с детьми (не из таблицы users)
	Children []*Child `json:"children,omitempty"`
}

// ContactAddress возвращает адрес для отправки уведомления: tg:<chat id>
// или tel:<телефон>, если Telegram не подключен
func (g *Guardian) ContactAddress() string {
	if g.TelegramChatID != 0 {
		return TelegramAddress(g.TelegramChatID)
	}
	return SchemePhone + g.Phone
}

func TelegramAddress(chatID int64) string {
	return SchemeTelegram + strconv.FormatInt(chatID, 10)
}
