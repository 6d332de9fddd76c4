package allowlist

// AntifraudSchema holds the refined prevention datasets.
const AntifraudSchema = "refined_service_prevention"

var antifraudDatasets = []string{
	"dts_7az",
	"dts_agenda_edu",
	"dts_enel_chile",
	"dts_equatorial_cea",
	"dts_equatorial_alagoas",
	"dts_equatorial_ceee",
	"dts_equatorial_goias",
	"dts_equatorial_maranhao",
	"dts_equatorial_para",
	"dts_equatorial_piaui",
	"dts_grupo_farias_brito",
	"dts_grupo_inspira",
	"dts_grupo_salta",
	"dts_grupo_yduqs_sub",
	"dts_light",
	"dts_neoenergia_bahia",
	"dts_sabesp",
	"dts_voltz",
	"dts_wave_algar",
}

// Antifraud returns the registry of partner prevention datasets. Each
// logical name maps to the table of the same name in AntifraudSchema.
func Antifraud() *Registry {
	entries := make(map[string]Table, len(antifraudDatasets))
	for _, name := range antifraudDatasets {
		entries[name] = Table{Schema: AntifraudSchema, Name: name}
	}
	return New(entries)
}
