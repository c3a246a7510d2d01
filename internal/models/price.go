package models

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is appended to every formatted price.
const Currency = "FCFA"

var pricePrinter = message.NewPrinter(language.French)

// groupSep is the narrow no-break space browsers use for fr-FR grouping.
const groupSep = "\u202f"

var groupNormalizer = strings.NewReplacer("\u00a0", groupSep, ".", groupSep)

// FormatPrice renders a price with French digit grouping, e.g. "850 000 FCFA".
func FormatPrice(price int64) string {
	return groupNormalizer.Replace(pricePrinter.Sprintf("%d", price)) + " " + Currency
}
