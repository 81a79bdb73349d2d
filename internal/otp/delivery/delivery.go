// Package delivery sends one-time codes to users over Telegram or SMS.
package delivery

import "fmt"

// Message is one outbound code notification. ChatID is used by the Telegram
// channel; Phone by SMS.
type Message struct {
	Phone  string
	ChatID string
	Text   string
}

// CodeText renders the user-facing message for code.
func CodeText(code string) string {
	return fmt.Sprintf("Your TripMate OTP is: %s", code)
}
