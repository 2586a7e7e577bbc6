package recommendations

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Recommendation struct {
	ID string

	PatientID string
	MedicID   string

	Description string
	Type        string // stil-viata, medicatie, exercitii, dieta, control u otro libre

	Status   Status
	Progress int // 0..100

	CreatedAt time.Time
}

// TypeLabel traduce el tipo a su etiqueta visible; tipos desconocidos se devuelven tal cual.
func TypeLabel(t string) string {
	switch strings.ToLower(t) {
	case "stil-viata":
		return "Stil de viață"
	case "medicatie":
		return "Medicație"
	case "exercitii":
		return "Exerciții"
	case "dieta":
		return "Dietă"
	case "control":
		return "Control medical"
	default:
		return t
	}
}

// ProgressBar: 10 bloques, uno lleno por cada 10 %.
func ProgressBar(progress int) string {
	filled := progress / 10
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		if i < filled {
			sb.WriteString("█")
		} else {
			sb.WriteString("░")
		}
	}
	return sb.String()
}

// GeneralTips acompaña al resumen cuando hay recomendaciones personalizadas.
func GeneralTips() []string {
	return []string{
		"Urmați cu atenție recomandările medicale",
		"Băți minim 2 litri de apă pe zi",
		"Dormiți 7-8 ore pe noapte",
		"Exerciții fizice regulate",
		"Evitați stresul",
		"Control medical periodic",
	}
}

// DefaultTips se muestran cuando el paciente no tiene recomendaciones.
func DefaultTips() []string {
	return []string{
		"30 de minute de mișcare zilnic",
		"Dietă echilibrată cu reducere de sare",
		"Minim 2 litri de apă pe zi",
		"7-8 ore de somn pe noapte",
		"Măsurare regulată a tensiunii",
		"Evitare stres",
		"Control medical lunar",
	}
}

type Overview struct {
	Personalized bool
	Items        []Recommendation

	Active    int
	Completed int
	Total     int

	Tips []string
}
