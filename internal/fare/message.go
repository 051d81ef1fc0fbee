package fare

import (
	"strconv"
	"strings"
)

const (
	offerHeader = "✈️ *Oferta de Passagem Aérea Encontrada!*"
	batchHeader = "✈️ *Ofertas de Passagem Aérea Encontradas!*"
)

// Formatter renders matched offers as Telegram Markdown text.
type Formatter struct {
	// CurrencySymbol prefixes prices, e.g. "R$".
	CurrencySymbol string
}

// Format renders one offer as a standalone message.
func (f Formatter) Format(m MatchedOffer) string {
	var b strings.Builder
	b.WriteString(offerHeader)
	b.WriteString("\n\n")
	f.writeOffer(&b, m)
	return strings.TrimRight(b.String(), "\n")
}

// FormatBatch renders several offers as one message, one paragraph each.
// It returns "" when there is nothing to send.
func (f Formatter) FormatBatch(offers []MatchedOffer) string {
	if len(offers) == 0 {
		return ""
	}
	if len(offers) == 1 {
		return f.Format(offers[0])
	}
	var b strings.Builder
	b.WriteString(batchHeader)
	b.WriteString("\n\n")
	for i, m := range offers {
		if i > 0 {
			b.WriteString("―――――――――――\n\n")
		}
		f.writeOffer(&b, m)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f Formatter) writeOffer(b *strings.Builder, m MatchedOffer) {
	r := m.Route
	line(b, "Origem", place(r.OriginName, r.Origin))
	line(b, "Destino", place(r.Name, r.Destination))
	line(b, "Data Ida", FormatDate(m.Candidate.Outbound))
	line(b, "Data Volta", FormatDate(m.Candidate.Return))
	if !m.OutboundPrice.IsZero() || !m.ReturnPrice.IsZero() {
		line(b, "Ida", f.money(m.OutboundPrice.StringFixed(2)))
		line(b, "Volta", f.money(m.ReturnPrice.StringFixed(2)))
	}
	line(b, "Total (ida/volta)", f.money(m.Candidate.Price.StringFixed(2)))
	b.WriteString("\n")

	writeOptions(b, "IDA", m.Outbound)
	writeOptions(b, "VOLTA", m.Return)
}

func writeOptions(b *strings.Builder, leg string, options []ItineraryOption) {
	for i, o := range options {
		b.WriteString("*Voo de ")
		b.WriteString(leg)
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(":*\n")
		line(b, "Companhia Aérea", escapeMarkdown(o.Carrier))
		line(b, "Horário de Partida", FormatTime(o.Departure))
		line(b, "Horário de Chegada", FormatTime(o.Arrival))
		line(b, "Duração", escapeMarkdown(durationText(o)))
		line(b, "Tipo", escapeMarkdown(StopLabel(o)))
		b.WriteString("\n")
	}
}

func line(b *strings.Builder, label, value string) {
	b.WriteString("- *")
	b.WriteString(label)
	b.WriteString(":* ")
	b.WriteString(value)
	b.WriteString("\n")
}

func place(name, code string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return code
	}
	return escapeMarkdown(name) + " (" + code + ")"
}

func (f Formatter) money(amount string) string {
	sym := strings.TrimSpace(f.CurrencySymbol)
	if sym == "" {
		return amount
	}
	return sym + " " + amount
}
