package allowlist

// Payment sources exposed by the payment search screens.
const (
	SourceGMA       = "gma"
	SourcePosNegado = "posnegado"
)

// CardsTable is the card reference table each payment schema carries next
// to its transactions.
const CardsTable = "card_references"

// Payments returns the registry of payment transaction tables keyed by
// source name.
func Payments() *Registry {
	return New(map[string]Table{
		SourceGMA:       {Schema: "gma", Name: "transactions"},
		SourcePosNegado: {Schema: "posnegado", Name: "transactions"},
	})
}
