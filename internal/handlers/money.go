package handlers

import (
	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/pkg/money"
)

// MoneyDisplay controls how offer amounts are rendered in API payloads.
type MoneyDisplay struct {
	Formatter         *money.Formatter
	SecondaryCurrency string
	SecondaryRate     float64
}

func (d MoneyDisplay) formatter() *money.Formatter {
	if d.Formatter == nil {
		return money.NewFormatter("en")
	}
	return d.Formatter
}

// format renders the offer amount, with the secondary currency when configured. Failures yield "".
func (d MoneyDisplay) format(offer *models.Offer) string {
	f := d.formatter()
	if d.SecondaryCurrency != "" && d.SecondaryRate > 0 {
		if out, err := f.FormatDual(offer.NetAmountCents, offer.Currency, d.SecondaryCurrency, d.SecondaryRate); err == nil {
			return out
		}
	}
	out, err := f.Format(offer.NetAmountCents, offer.Currency)
	if err != nil {
		return ""
	}
	return out
}
