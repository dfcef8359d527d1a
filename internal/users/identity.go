package users

import (
	"strings"
	"time"
	"unicode"
)

// Identity captures the mapping between a canonical user id and a provider-specific login.
type Identity struct {
	Provider       string    `gorm:"column:provider;primaryKey;size:32;not null"`
	Subject        string    `gorm:"column:subject;primaryKey;size:190;not null"`
	UserID         string    `gorm:"column:user_id;size:190;not null;index"`
	Email          string    `gorm:"column:user_email;size:320"`
	DisplayName    string    `gorm:"column:user_display_name;size:320"`
	CompletedGames int64     `gorm:"column:completed_games;not null;default:0"`
	LastSeenAt     time.Time `gorm:"column:last_seen_at;autoUpdateTime"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user identities.
func (Identity) TableName() string {
	return "user_identities"
}

// Initials derives the two-letter attribution stamped on events a user creates.
// It falls back to the email local part, then to "??".
func Initials(displayName, email string) string {
	words := strings.FieldsFunc(normalize(displayName), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch {
	case len(words) >= 2:
		return upperFirst(words[0]) + upperFirst(words[len(words)-1])
	case len(words) == 1:
		return upperPrefix(words[0])
	}
	local := normalize(email)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if local != "" {
		return upperPrefix(local)
	}
	return "??"
}

func upperFirst(word string) string {
	for _, r := range word {
		return string(unicode.ToUpper(r))
	}
	return ""
}

func upperPrefix(word string) string {
	runes := []rune(word)
	if len(runes) == 1 {
		return strings.ToUpper(string(runes)) + "?"
	}
	return strings.ToUpper(string(runes[:2]))
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
