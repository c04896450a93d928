package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/marketlive/internal/apperror"
)

// OfferForm holds the raw values typed into the offer form.
type OfferForm struct {
	Name   string
	Email  string
	ItemID string
	Amount string
}

// OfferRequest is a validated offer ready to be sent.
type OfferRequest struct {
	Name   string
	Email  string
	ItemID string
	Amount decimal.Decimal
}

// OfferResult is the server's verdict on an offer.
type OfferResult struct {
	Success  bool   `json:"success"`
	NewPrice string `json:"newPrice,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ValidationMessage is shown when the offer form is incomplete.
const ValidationMessage = "Please fill in every field and make sure the amount is greater than 0."

// Validate trims the form and builds an OfferRequest. Name and email must be
// non-empty and the amount a finite number greater than zero.
func (f OfferForm) Validate() (OfferRequest, error) {
	name := strings.TrimSpace(f.Name)
	email := strings.TrimSpace(f.Email)
	itemID := strings.TrimSpace(f.ItemID)

	switch {
	case name == "":
		return OfferRequest{}, validationError(apperror.CodeRequiredField, "name")
	case email == "":
		return OfferRequest{}, validationError(apperror.CodeRequiredField, "email")
	case itemID == "":
		return OfferRequest{}, validationError(apperror.CodeRequiredField, "id")
	}

	// decimal rejects NaN, Inf and non-numeric text.
	amount, err := decimal.NewFromString(strings.TrimSpace(f.Amount))
	if err != nil || !amount.IsPositive() {
		return OfferRequest{}, validationError(apperror.CodeInvalidAmount, "amount")
	}

	return OfferRequest{
		Name:   name,
		Email:  email,
		ItemID: itemID,
		Amount: amount,
	}, nil
}

func validationError(code apperror.Code, field string) error {
	return apperror.New(code,
		apperror.WithMessage(ValidationMessage),
		apperror.WithContext(field))
}

// FormatAmount renders an amount the way confirmations show it: "$12.50 USD".
func FormatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(2) + " USD"
}
