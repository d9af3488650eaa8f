package services

import (
	"strings"

	"barrio-connector/internal/domain/entities"
	Iservices "barrio-connector/internal/domain/interfaces/services"
)

var _ Iservices.IIntentClassifier = (*KeywordIntentClassifier)(nil)

var (
	// "me compró" is a customer buying from the store; "me compré" stays an expense.
	saleKeywords    = []string{"venta", "vend", "cobr", "me compro", "me compraron", "nos compro", "nos compraron", "sale", "sold", "sell"}
	expenseKeywords = []string{"gasto", "gast", "compr", "pague", "expense", "spent", "bought"}
)

// KeywordIntentClassifier routes the first utterance of a conversation by
// substring match. Sale keywords are checked first, so an utterance holding
// both kinds resolves to a sale.
type KeywordIntentClassifier struct{}

func NewKeywordIntentClassifier() *KeywordIntentClassifier {
	return &KeywordIntentClassifier{}
}

func (c *KeywordIntentClassifier) Classify(utterance string) entities.Intent {
	text := fold(utterance)
	switch {
	case containsAny(text, saleKeywords):
		return entities.IntentSale
	case containsAny(text, expenseKeywords):
		return entities.IntentExpense
	}
	return entities.IntentNone
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
