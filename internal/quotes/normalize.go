package quotes

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/pricing"
)

// guestContactMessage is shown verbatim to guests who submit without any
// resolvable contact identity.
const guestContactMessage = "Please include a contact email so we can follow up about your quote."

// normalizeQuote mutates the candidate quote before it is committed: customer
// identity precedence, per-item filament resolution and pricing, and the
// derived total. Any error aborts the surrounding transaction.
func (s *Service) normalizeQuote(ctx context.Context, tx *gorm.DB, requester Requester, input QuoteInput, prior *Quote, quote *Quote) error {
	customerID, customerEmail, err := resolveCustomerIdentity(requester, input, prior)
	if err != nil {
		return err
	}
	quote.CustomerID = customerID
	quote.CustomerEmail = customerEmail

	resolver, err := catalog.NewResolver(tx, s.logger)
	if err != nil {
		return newServiceError(opCreate, "resolver_init_failed", err)
	}
	defaults := catalog.LoadPricingDefaults(ctx, tx, s.defaultCurrency)

	items, amount, err := s.resolveItems(ctx, resolver, defaults, quote.ID, input.Items)
	if err != nil {
		return err
	}
	quote.Items = items
	quote.Amount = amount

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaults.Currency
	}
	quote.Currency = currency

	return nil
}

// resolveCustomerIdentity applies the contact precedence: a resolvable
// customer id wins, then a resolvable email, then the authenticated
// requester. Guests without any of those are rejected. Prior values are
// consulted on updates so a blank payload never clears a resolved customer.
func resolveCustomerIdentity(requester Requester, input QuoteInput, prior *Quote) (string, string, error) {
	incomingEmail := strings.TrimSpace(input.CustomerEmail)
	if requester.Anonymous() && incomingEmail != "" {
		incomingEmail = strings.ToLower(incomingEmail)
	}

	existingEmail := incomingEmail
	if existingEmail == "" && prior != nil {
		existingEmail = prior.CustomerEmail
	}

	existingCustomer := input.Customer.ID
	if existingCustomer == "" && prior != nil {
		existingCustomer = prior.CustomerID
	}

	switch {
	case existingCustomer != "":
		return existingCustomer, existingEmail, nil
	case existingEmail != "":
		return "", existingEmail, nil
	case !requester.Anonymous():
		return requester.ID, "", nil
	default:
		return "", "", &ValidationError{Message: guestContactMessage}
	}
}

// resolveItems derives filament, quantity, and line amount for every item.
// Nil entries pass through unpersisted; client-supplied filament values are
// always discarded in favour of the resolver's answer.
func (s *Service) resolveItems(ctx context.Context, resolver *catalog.Resolver, defaults pricing.Defaults, quoteID string, inputs []*ItemInput) ([]QuoteItem, int64, error) {
	items := make([]QuoteItem, 0, len(inputs))
	var amount int64

	position := 0
	for _, input := range inputs {
		if input == nil {
			continue
		}

		filamentID, err := resolver.ResolveFilament(ctx, input.Material.ID, input.Colour.ID)
		if err != nil {
			s.logError(opCreate, "filament_resolution_failed", err)
			return nil, 0, newServiceError(opCreate, "filament_resolution_failed", err)
		}

		quantity := pricing.NormalizeQuantity(input.Quantity)
		grams := pricing.NormalizeGrams(input.Grams)
		materialPrice := resolver.MaterialPricePerGram(ctx, input.Material.ID, input.Material.PricePerGram)

		lineAmount := pricing.PriceLine(pricing.Line{
			Quantity:             quantity,
			Grams:                grams,
			PriceOverride:        input.PriceOverride,
			MaterialPricePerGram: materialPrice,
		}, defaults)
		amount += lineAmount

		items = append(items, QuoteItem{
			QuoteID:       quoteID,
			Position:      position,
			ModelID:       input.Model.ID,
			MaterialID:    input.Material.ID,
			ColourID:      input.Colour.ID,
			ProcessID:     input.Process.ID,
			FilamentID:    filamentID,
			Quantity:      quantity,
			Grams:         grams,
			PriceOverride: input.PriceOverride,
			LineAmount:    lineAmount,
		})
		position++
	}

	return items, amount, nil
}
