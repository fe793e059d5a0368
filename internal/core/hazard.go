package core

import "strings"

// DefaultHazardFamily is assigned when no keyword matches the section title.
const DefaultHazardFamily = "Condiciones generales de trabajo"

// hazardKeywords maps section-title keywords to hazard families. Order
// matters: the first matching keyword wins.
var hazardKeywords = []struct {
	keyword string
	family  string
}{
	{"altura", "Trabajos en altura"},
	{"andamio", "Trabajos en altura"},
	{"izaje", "Izaje y equipos de levante"},
	{"grúa", "Izaje y equipos de levante"},
	{"grua", "Izaje y equipos de levante"},
	{"eléctric", "Energía eléctrica"},
	{"electric", "Energía eléctrica"},
	{"energía", "Energía eléctrica"},
	{"energia", "Energía eléctrica"},
	{"químic", "Sustancias peligrosas"},
	{"quimic", "Sustancias peligrosas"},
	{"derrame", "Sustancias peligrosas"},
	{"incendio", "Prevención de incendios"},
	{"fuego", "Prevención de incendios"},
	{"extintor", "Prevención de incendios"},
	{"vehículo", "Equipos móviles y vehículos"},
	{"vehiculo", "Equipos móviles y vehículos"},
	{"equipo móvil", "Equipos móviles y vehículos"},
	{"equipo movil", "Equipos móviles y vehículos"},
	{"tránsito", "Equipos móviles y vehículos"},
	{"transito", "Equipos móviles y vehículos"},
	{"excavación", "Excavaciones y zanjas"},
	{"excavacion", "Excavaciones y zanjas"},
	{"zanja", "Excavaciones y zanjas"},
	{"espacio confinado", "Espacios confinados"},
	{"orden", "Orden y limpieza"},
	{"limpieza", "Orden y limpieza"},
	{"herramienta", "Herramientas manuales"},
	{"epp", "Equipo de protección personal"},
	{"protección personal", "Equipo de protección personal"},
	{"proteccion personal", "Equipo de protección personal"},
}

// ClassifyHazard derives the hazard family from a section title by
// case-insensitive substring match over the keyword table. The first match
// wins; an empty or unmatched title gets DefaultHazardFamily.
func ClassifyHazard(sectionTitle string) string {
	title := strings.ToLower(sectionTitle)
	for _, entry := range hazardKeywords {
		if strings.Contains(title, entry.keyword) {
			return entry.family
		}
	}
	return DefaultHazardFamily
}
