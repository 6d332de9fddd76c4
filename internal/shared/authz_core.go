package shared

// Console capability tags. The rbac catalog is built from these and is the
// only place that assigns them labels.
const (
	PermHome                       = "home"
	PermAntifraude                 = "antifraude"
	PermBolepix                    = "bolepix"
	PermCieloGerarToken            = "cielo_gerar_token"
	PermCieloSolicitarCancelamento = "cielo_solicitar_cancelamento"
	PermCieloCartaCancelamento     = "cielo_carta_cancelamento"
	PermCieloCancelamentoPM        = "cielo_cancelamento_pm"
	PermPagamentosGMA              = "pagamentos_gma"
	PermPagamentosPosNegado        = "pagamentos_posnegado"
	PermUsuarios                   = "usuarios"
)

// CieloScopes lists the capabilities of the Cielo cancellation tools.
func CieloScopes() []string {
	return []string{
		PermCieloGerarToken,
		PermCieloSolicitarCancelamento,
		PermCieloCartaCancelamento,
		PermCieloCancelamentoPM,
	}
}

// PaymentScopes lists the capabilities of the payment search screens.
func PaymentScopes() []string {
	return []string{
		PermPagamentosGMA,
		PermPagamentosPosNegado,
	}
}
