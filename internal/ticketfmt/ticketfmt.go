// Package ticketfmt renders kitchen tickets for legacy escape-code thermal
// printers: fixed 32-column layout, ASCII only. Diacritics are stripped and
// symbolic glyphs become bracketed text tokens before anything reaches the
// printing transport.
package ticketfmt

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

// Width is the printable column count of the destination hardware.
const Width = 32

// Cut is the escape sequence that terminates a ticket (GS V 0, full cut).
const Cut = "\x1d\x56\x00"

var tokenReplacements = map[string]string{
	"✅": "[OK]",
	"❌": "[NO]",
	"⚠": "[!]",
	"€": "EUR",
	"°": "",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Clean converts arbitrary text into printer-safe ASCII: accents removed,
// known symbols replaced by bracketed tokens, anything else non-printable
// dropped.
func Clean(text string) string {
	for token, replacement := range tokenReplacements {
		text = strings.ReplaceAll(text, token, replacement)
	}

	stripped, _, err := transform.String(stripMarks, text)
	if err == nil {
		text = stripped
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Center pads a line to the ticket width with the text centered.
func Center(text string) string {
	text = Clean(text)
	if len(text) >= Width {
		return text
	}
	left := (Width - len(text)) / 2
	return strings.Repeat(" ", left) + text
}

// Rule returns a full-width separator of the given character.
func Rule(c byte) string {
	return strings.Repeat(string(c), Width)
}

// RenderTicket renders the zone-scoped ticket body. Only the given items,
// the subset of the order routed to this zone, appear on it.
func RenderTicket(tenantName string, order *model.Order, zone *model.PrinterZone, items []model.OrderItem, now time.Time) string {
	lines := []string{
		Center(tenantName),
		Clean("Fecha: " + now.Format("02/01/2006 - 15:04")),
		Clean("Zona: " + zone.Name),
		Rule('='),
		Clean("Pedido: #" + order.OrderNumber),
		Clean("Telefono: " + order.PhoneNumber),
	}
	if order.TableNumber != "" {
		lines = append(lines, Clean("Mesa: "+order.TableNumber))
	}
	lines = append(lines, Rule('='))

	for _, item := range items {
		lines = append(lines, itemLines(&item)...)
	}
	lines = append(lines, Rule('-'))

	if order.PaymentStatus == model.PaymentStatePaid {
		lines = append(lines, Center("[OK] PAGO CONFIRMADO"))
	} else {
		lines = append(lines, Center("[NO] PAGO PENDIENTE"))
	}
	lines = append(lines, Rule('='))

	return strings.Join(lines, "\n")
}

func itemLines(item *model.OrderItem) []string {
	name := ""
	if item.Product != nil {
		name = item.Product.Name
	}
	lines := []string{Clean(fmt.Sprintf("%dx %s", item.Quantity, name))}

	if len(item.Extras) > 0 {
		names := make([]string, len(item.Extras))
		for i, extra := range item.Extras {
			names[i] = extra.Name
		}
		lines = append(lines, Clean("  + "+strings.Join(names, ", ")))
	}
	if len(item.Exclusions) > 0 {
		lines = append(lines, Clean("  - [NO]: "+strings.Join(item.Exclusions, ", ")))
	}
	if item.SpecialInstructions != "" {
		lines = append(lines, Clean("  ! [!] "+item.SpecialInstructions))
	}
	return lines
}
