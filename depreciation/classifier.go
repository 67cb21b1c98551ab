package depreciation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// USAGE CLASSES - Statutory useful life per asset category
// =============================================================================

const (
	DefaultUsageClass      = "Bienes de uso en general"
	DefaultUsefulLifeYears = 5
)

// Classification is the result of mapping a machine type onto a usage class.
type Classification struct {
	UsageClass      string
	UsefulLifeYears int
	Matched         bool // false when the default was applied
}

type usageClass struct {
	name     string
	years    int
	keywords []string
}

// usageClasses is checked in order; the first class with a matching keyword
// wins. Light vehicles come before heavy ones because "camioneta" contains
// "camion".
var usageClasses = []usageClass{
	{"Equipos de computacion", 4, []string{"computadora", "computacion", "computo", "laptop", "impresora", "servidor", "computer"}},
	{"Muebles y enseres", 10, []string{"mueble", "escritorio", "silla", "estante", "enseres", "furniture"}},
	{"Herramientas en general", 4, []string{"herramienta", "tool"}},
	{"Maquinaria para la construccion", 5, []string{
		"maquinaria pesada", "heavy machinery", "excavadora", "motoniveladora", "cargador",
		"tractor", "rodillo", "compactadora", "grua", "topadora", "bulldozer", "pala mecanica",
	}},
	{"Vehiculos automotores livianos", 5, []string{"vehiculo liviano", "light vehicle", "camioneta", "automovil", "vagoneta", "jeep", "motocicleta"}},
	{"Vehiculos automotores pesados", 5, []string{"vehiculo pesado", "heavy vehicle", "volqueta", "camion", "cisterna", "tracto", "trailer", "bus"}},
	{"Maquinaria en general", 8, []string{"maquinaria", "machinery", "generador", "compresor", "bomba"}},
}

// Classify maps a free-text machine type and detail to a usage class.
// Matching is case and accent insensitive. Unknown input falls back to
// DefaultUsageClass with DefaultUsefulLifeYears.
func Classify(category, detail string) Classification {
	text := fold(category + " " + detail)
	for _, c := range usageClasses {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return Classification{UsageClass: c.name, UsefulLifeYears: c.years, Matched: true}
			}
		}
	}
	return Classification{UsageClass: DefaultUsageClass, UsefulLifeYears: DefaultUsefulLifeYears}
}

// fold lowercases s and strips diacritics ("Camión" -> "camion").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}
