// Package footer appends the channel attribution footer to submission
// text.
package footer

import "fmt"

const template = "(Подслушано 1699)[https://Pod1699.t.me] | Сообщение отправлено пользователем [ID: %d]"

// Format appends the attribution footer to original. A non-empty
// original is separated from the footer by a blank line; an empty
// original yields the footer alone.
func Format(original string, userID int64) string {
	f := fmt.Sprintf(template, userID)
	if original == "" {
		return f
	}
	return original + "\n\n" + f
}
