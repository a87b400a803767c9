package alerts

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// ContactLinks are the deep links shown to a finder after a successful
// alert so they can reach the owner in one tap.
type ContactLinks struct {
	Tel string `json:"tel"`
	SMS string `json:"sms"`
}

// SMSContext is what the prefilled sms: body is composed from: the pet the
// tag points at plus what the finder just told us.
type SMSContext struct {
	PetName     string
	Breed       *string
	AgeYears    *int
	Message     string
	LocationURL string
	FinderPhone string
}

// NormalizePhone reduces a human-entered phone number to "+digits" form.
// Separators (spaces, dashes, dots, parentheses) are dropped; a leading +
// is preserved. Anything else is rejected.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number is empty")
	}

	var digits strings.Builder
	for i, r := range trimmed {
		switch {
		case r == '+' && i == 0:
			// kept below
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separator, drop
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number contains invalid characters")
		}
	}

	n := digits.Len()
	if n < minPhoneDigits || n > maxPhoneDigits {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number has the wrong number of digits")
	}
	return "+" + digits.String(), nil
}

// ComposeSMSBody renders the text the finder's messaging app opens with:
// which pet this is about, the finder's own words, then the location and
// callback details (or their explicit absence).
func ComposeSMSBody(sctx SMSContext) string {
	var b strings.Builder

	b.WriteString("Found pet: " + sctx.PetName)
	switch {
	case sctx.Breed != nil && *sctx.Breed != "" && sctx.AgeYears != nil:
		fmt.Fprintf(&b, " (%s, %d yrs)", *sctx.Breed, *sctx.AgeYears)
	case sctx.Breed != nil && *sctx.Breed != "":
		fmt.Fprintf(&b, " (%s)", *sctx.Breed)
	case sctx.AgeYears != nil:
		fmt.Fprintf(&b, " (%d yrs)", *sctx.AgeYears)
	}
	b.WriteString("\n" + sctx.Message)

	if sctx.LocationURL != "" {
		b.WriteString("\nLocation: " + sctx.LocationURL)
	} else {
		b.WriteString("\nLocation: Not shared")
	}
	b.WriteString("\nContact: " + sctx.FinderPhone)

	return b.String()
}

// SynthesizeLinks builds tel: and sms: deep links for the owner's phone.
// A non-empty body is attached to the sms: link query-encoded, so tapping
// it opens a prefilled message.
func SynthesizeLinks(phone, body string) (*ContactLinks, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	sms := "sms:" + normalized
	if body != "" {
		sms += "?body=" + url.QueryEscape(body)
	}
	return &ContactLinks{
		Tel: "tel:" + normalized,
		SMS: sms,
	}, nil
}
