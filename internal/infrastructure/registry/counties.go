package registry

import "strings"

// countyCodes maps the registry's county names (returned as plain text,
// diacritics already stripped by the service) to ISO 3166-2 codes.
var countyCodes = map[string]string{
	"ALBA":            "RO-AB",
	"ARAD":            "RO-AR",
	"ARGES":           "RO-AG",
	"BACAU":           "RO-BC",
	"BIHOR":           "RO-BH",
	"BISTRITA-NASAUD": "RO-BN",
	"BOTOSANI":        "RO-BT",
	"BRAILA":          "RO-BR",
	"BRASOV":          "RO-BV",
	"BUCURESTI":       "RO-B",
	"BUZAU":           "RO-BZ",
	"CALARASI":        "RO-CL",
	"CARAS-SEVERIN":   "RO-CS",
	"CLUJ":            "RO-CJ",
	"CONSTANTA":       "RO-CT",
	"COVASNA":         "RO-CV",
	"DAMBOVITA":       "RO-DB",
	"DOLJ":            "RO-DJ",
	"GALATI":          "RO-GL",
	"GIURGIU":         "RO-GR",
	"GORJ":            "RO-GJ",
	"HARGHITA":        "RO-HR",
	"HUNEDOARA":       "RO-HD",
	"IALOMITA":        "RO-IL",
	"IASI":            "RO-IS",
	"ILFOV":           "RO-IF",
	"MARAMURES":       "RO-MM",
	"MEHEDINTI":       "RO-MH",
	"MURES":           "RO-MS",
	"NEAMT":           "RO-NT",
	"OLT":             "RO-OT",
	"PRAHOVA":         "RO-PH",
	"SALAJ":           "RO-SJ",
	"SATU MARE":       "RO-SM",
	"SIBIU":           "RO-SB",
	"SUCEAVA":         "RO-SV",
	"TELEORMAN":       "RO-TR",
	"TIMIS":           "RO-TM",
	"TULCEA":          "RO-TL",
	"VALCEA":          "RO-VL",
	"VASLUI":          "RO-VS",
	"VRANCEA":         "RO-VN",
}

// CountyCode resolves a registry county name to its ISO code. Bucharest
// sectors all collapse to the municipality. Unknown names return empty.
func CountyCode(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasPrefix(n, "MUNICIPIUL ") {
		n = strings.TrimPrefix(n, "MUNICIPIUL ")
	}
	if strings.HasPrefix(n, "SECTOR") {
		return "RO-B"
	}
	return countyCodes[n]
}
