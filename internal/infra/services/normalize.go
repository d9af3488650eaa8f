package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const commandPunctuation = " \t\r\n.,;:!¡?¿\"'"

// fold lowercases s and strips diacritics, so "Sí" and "SI" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// commandWord folds s and trims whitespace and surrounding punctuation.
func commandWord(s string) string {
	return strings.Trim(fold(s), commandPunctuation)
}

type Command int

const (
	CommandNone Command = iota
	CommandCancel
	CommandHelp
	CommandConfirm
)

var commandWords = map[string]Command{
	"cancelar":  CommandCancel,
	"cancel":    CommandCancel,
	"ayuda":     CommandHelp,
	"help":      CommandHelp,
	"si":        CommandConfirm,
	"confirmar": CommandConfirm,
	"ok":        CommandConfirm,
	"yes":       CommandConfirm,
}

// ParseCommand matches the whole utterance against the fixed command vocabulary.
func ParseCommand(utterance string) Command {
	return commandWords[commandWord(utterance)]
}
